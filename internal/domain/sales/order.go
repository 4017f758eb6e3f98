package sales

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shelfwise/backend/internal/domain/storefront"
)

var (
	// ErrMissingPlatformOrderID indicates an order without its owning key.
	ErrMissingPlatformOrderID = errors.New("sales: missing platform order id")
	// ErrInvalidQuantity indicates a line item quantity that is not positive.
	ErrInvalidQuantity = errors.New("sales: quantity must be positive")
	// ErrNegativePrice indicates a negative line item price.
	ErrNegativePrice = errors.New("sales: price cannot be negative")
	// ErrOrderNotFound is returned by repositories when no order matches.
	ErrOrderNotFound = errors.New("sales: order not found")
)

// Order is an ingested storefront order.
//
// Orders are created or updated by the sync orchestrator on each pass and
// are never deleted by this subsystem. PlatformOrderID is the owning key:
// re-ingestion of the same identifier merges (last-write-wins on mutable
// fields) rather than duplicating.
type Order struct {
	ID              uuid.UUID
	PlatformOrderID string
	// CustomerID is the platform customer reference; nil for guest checkout.
	CustomerID *string
	// ContactDigest is the one-way hashed buyer contact token. Raw contact
	// data is never persisted.
	ContactDigest     string
	TotalAmount       decimal.Decimal
	SubtotalAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	Currency          string
	FinancialStatus   string
	FulfillmentStatus string
	// PlacedAt is the upstream-assigned order timestamp; the incremental
	// fetch window is computed from the maximum persisted value.
	PlacedAt time.Time
	// IsReturningCustomer is derived by the loyalty classifier, never set
	// during ingestion.
	IsReturningCustomer bool
	Items               []OrderItem
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is a single cart line within an Order.
//
// Identity is (order, variant key, position) so the same variant appearing
// on multiple cart lines stays distinct, and retried pages merge instead of
// duplicating.
type OrderItem struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	// VariantKey is the catalog variant identifier, or a synthesized key
	// for custom sale items (see VariantKeyFor).
	VariantKey string
	Title      string
	// Position is the 1-based cart position.
	Position  int
	Quantity  int64
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the line item invariants.
func (i *OrderItem) Validate() error {
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// VariantKeyFor returns the stable identity for a line item's variant.
//
// When the catalog provides no variant identifier (ad-hoc custom sale
// items), a deterministic composite key is synthesized from the owning
// order and cart position so upsert and correlation logic never collide
// across unrelated custom items.
func VariantKeyFor(variantID, platformOrderID string, position int) string {
	if variantID != "" {
		return variantID
	}
	return fmt.Sprintf("custom:%s:%d", platformOrderID, position)
}

// HashContact derives the persisted contact token from a raw buyer contact
// (email or phone). The digest is deterministic so the same customer hashes
// identically across orders; the raw value is discarded.
func HashContact(contact string) string {
	normalized := strings.ToLower(strings.TrimSpace(contact))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NewOrderFromPlatform converts a pulled platform order into the local
// aggregate. Line items missing required linkage are rejected with
// storefront.ErrMalformedRecord; the caller decides whether to skip them.
func NewOrderFromPlatform(po *storefront.PlatformOrder) (*Order, error) {
	if po.PlatformOrderID == "" {
		return nil, fmt.Errorf("%w: %v", storefront.ErrMalformedRecord, ErrMissingPlatformOrderID)
	}

	now := time.Now()
	order := &Order{
		ID:                uuid.New(),
		PlatformOrderID:   po.PlatformOrderID,
		CustomerID:        po.CustomerID,
		ContactDigest:     po.ContactDigest,
		TotalAmount:       po.TotalAmount,
		SubtotalAmount:    po.SubtotalAmount,
		DiscountAmount:    po.DiscountAmount,
		Currency:          po.Currency,
		FinancialStatus:   po.FinancialStatus,
		FulfillmentStatus: po.FulfillmentStatus,
		PlacedAt:          po.PlacedAt,
		Items:             make([]OrderItem, 0, len(po.Items)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for _, pi := range po.Items {
		if pi.Position <= 0 {
			return nil, fmt.Errorf("%w: line item without cart position in order %s",
				storefront.ErrMalformedRecord, po.PlatformOrderID)
		}
		item := OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			VariantKey: VariantKeyFor(pi.VariantID, po.PlatformOrderID, pi.Position),
			Title:      pi.Title,
			Position:   pi.Position,
			Quantity:   pi.Quantity,
			UnitPrice:  pi.UnitPrice,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: order %s position %d: %v",
				storefront.ErrMalformedRecord, po.PlatformOrderID, pi.Position, err)
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}
