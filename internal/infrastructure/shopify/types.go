package shopify

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// REST API Response Types
// ---------------------------------------------------------------------------

// ordersResponse is the envelope of GET /admin/api/{v}/orders.json
type ordersResponse struct {
	Orders []restOrder `json:"orders"`
}

// restOrder mirrors the Admin API order resource (subset of fields used)
type restOrder struct {
	ID                int64          `json:"id"`
	Email             string         `json:"email"`
	Phone             string         `json:"phone"`
	Customer          *restCustomer  `json:"customer"`
	TotalPrice        string         `json:"total_price"`
	SubtotalPrice     string         `json:"subtotal_price"`
	TotalDiscounts    string         `json:"total_discounts"`
	Currency          string         `json:"currency"`
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	LineItems         []restLineItem `json:"line_items"`
}

// restCustomer is the embedded customer record on an order
type restCustomer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// restLineItem mirrors the Admin API line_item resource
type restLineItem struct {
	ID        int64  `json:"id"`
	VariantID *int64 `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	Price     string `json:"price"`
}

// countResponse is the envelope of GET /admin/api/{v}/orders/count.json
type countResponse struct {
	Count int `json:"count"`
}

// variantsResponse is the envelope of GET /admin/api/{v}/variants.json
type variantsResponse struct {
	Variants []restVariant `json:"variants"`
}

// restVariant mirrors the Admin API variant resource (subset of fields used)
type restVariant struct {
	ID                int64   `json:"id"`
	SKU               string  `json:"sku"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	Cost              string  `json:"cost"`
	InventoryQuantity int64   `json:"inventory_quantity"`
	Vendor            *string `json:"vendor"`
	Distributor       *string `json:"distributor"`
	Tags              string  `json:"tags"`
}

// ---------------------------------------------------------------------------
// Parsing Helpers
// ---------------------------------------------------------------------------

// ParseDecimal parses a decimal string, returning zero for empty or invalid
// input. Platform money fields are decimal strings like "129.90".
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTime parses an RFC3339 timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatID renders a numeric platform id as the string form used everywhere
// downstream.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
