package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Storefront Errors
// ---------------------------------------------------------------------------

var (
	// ErrRateLimited indicates the platform throttled the request (HTTP 429
	// or an equivalent signal). Retryable with backoff.
	ErrRateLimited = errors.New("storefront: platform rate limited")
	// ErrPlatformUnavailable indicates a transient upstream failure
	// (network error or 5xx). Retryable once.
	ErrPlatformUnavailable = errors.New("storefront: platform temporarily unavailable")
	// ErrAuthFailed indicates invalid or expired credentials. Never retried.
	ErrAuthFailed = errors.New("storefront: platform authentication failed")
	// ErrInvalidResponse indicates the platform returned a payload that
	// could not be parsed.
	ErrInvalidResponse = errors.New("storefront: invalid platform response")
	// ErrRequestFailed indicates a non-retryable request failure.
	ErrRequestFailed = errors.New("storefront: platform request failed")
	// ErrMalformedRecord indicates an upstream record missing required
	// linkage fields. Skipped with a warning, never fatal.
	ErrMalformedRecord = errors.New("storefront: malformed upstream record")
	// ErrMissingCredentials indicates no shop credentials were provided.
	ErrMissingCredentials = errors.New("storefront: missing shop credentials")
)

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials identifies a merchant shop on the platform.
type Credentials struct {
	// ShopDomain is the myshopify-style shop host, e.g. "acme.myshopify.com".
	ShopDomain string
	// AccessToken is the Admin API access token for the shop.
	AccessToken string
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if c.ShopDomain == "" || c.AccessToken == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// PlatformOrder is an order as reported by the storefront platform.
//
// Buyer contact information never crosses this boundary in the clear: the
// adapter replaces it with ContactDigest before returning the order.
type PlatformOrder struct {
	// PlatformOrderID is the globally unique order identifier on the platform.
	PlatformOrderID string
	// CustomerID is the platform customer identifier; nil for guest checkout.
	CustomerID *string
	// ContactDigest is a one-way hash of the buyer's contact (email or
	// phone), used for loyalty matching. Empty when no contact was given.
	ContactDigest string
	// TotalAmount is what the buyer paid.
	TotalAmount decimal.Decimal
	// SubtotalAmount is the pre-discount product total.
	SubtotalAmount decimal.Decimal
	// DiscountAmount is the total discount applied.
	DiscountAmount decimal.Decimal
	// Currency is the ISO currency code.
	Currency string
	// FinancialStatus is the platform payment status string (e.g. "paid").
	FinancialStatus string
	// FulfillmentStatus is the platform fulfillment status string.
	FulfillmentStatus string
	// PlacedAt is the upstream-assigned creation timestamp.
	PlacedAt time.Time
	// Items contains the order line items in cart order.
	Items []PlatformOrderItem
}

// PlatformOrderItem is a line item within a PlatformOrder.
type PlatformOrderItem struct {
	// VariantID is the catalog variant identifier; empty for ad-hoc custom
	// sale items that have no stable catalog identity.
	VariantID string
	// Title is the product title as sold.
	Title string
	// Position is the 1-based cart position of this line.
	Position int
	// Quantity is the ordered quantity.
	Quantity int64
	// UnitPrice is the per-unit price.
	UnitPrice decimal.Decimal
}

// PlatformVariant is a catalog variant as reported by the platform.
//
// Pointer fields distinguish "attribute absent upstream" (nil, which the
// inventory pipeline persists as an explicit clear) from an empty value.
type PlatformVariant struct {
	VariantID         string
	SKU               string
	Title             string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	InventoryQuantity int64
	Vendor            *string
	Distributor       *string
	Tags              []string
}

// ---------------------------------------------------------------------------
// Request/Response DTOs
// ---------------------------------------------------------------------------

// OrderPullRequest describes one page fetch of the order history.
type OrderPullRequest struct {
	// Credentials identify the shop to pull from.
	Credentials Credentials
	// UpdatedAtMin is the inclusive lower bound of the fetch window.
	// Ignored when Cursor is set (the cursor encodes the query).
	UpdatedAtMin time.Time
	// Cursor is the continuation cursor from the previous page; empty for
	// the first page.
	Cursor string
	// PageSize is the number of orders per page (1..250).
	PageSize int
}

// Validate validates the pull request and applies page size defaults.
func (r *OrderPullRequest) Validate() error {
	if err := r.Credentials.Validate(); err != nil {
		return err
	}
	if r.Cursor == "" && r.UpdatedAtMin.IsZero() {
		return errors.New("storefront: a fetch window or cursor is required")
	}
	if r.PageSize < 1 || r.PageSize > 250 {
		r.PageSize = 250
	}
	return nil
}

// OrderPage is one page of pulled orders.
type OrderPage struct {
	// Orders contains the page's orders.
	Orders []PlatformOrder
	// NextCursor continues the sequence; empty when this is the last page.
	NextCursor string
}

// HasMore reports whether another page follows.
func (p *OrderPage) HasMore() bool {
	return p.NextCursor != ""
}

// ---------------------------------------------------------------------------
// Storefront Port Interface
// ---------------------------------------------------------------------------

// Storefront is the port to the external e-commerce platform.
//
// Implementations own all transport concerns: pagination mechanics,
// rate-limit detection, backoff and retries. Callers see a lazy, finite
// sequence of pages and a batch variant lookup.
type Storefront interface {
	// PullOrders fetches one page of orders. The returned page carries the
	// continuation cursor for the next call; an empty cursor ends the
	// sequence. A page-level failure is returned only after the adapter's
	// retry budget is exhausted.
	PullOrders(ctx context.Context, req *OrderPullRequest) (*OrderPage, error)

	// CountOrders returns the number of orders updated at or after
	// updatedAtMin, under the same retry policy as PullOrders. Used to size
	// progress reporting before the first page lands.
	CountOrders(ctx context.Context, creds Credentials, updatedAtMin time.Time) (int, error)

	// GetVariants fetches up to MaxVariantBatch catalog variants in one
	// combined query.
	GetVariants(ctx context.Context, creds Credentials, variantIDs []string) ([]PlatformVariant, error)
}

// MaxVariantBatch is the maximum number of variant ids accepted by a single
// GetVariants call.
const MaxVariantBatch = 50
