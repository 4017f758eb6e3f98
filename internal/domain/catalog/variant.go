// Package catalog holds the canonical local copy of the storefront catalog,
// refreshed by the inventory/attribute sync pipeline and read by the
// correlation engine.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrVariantNotFound is returned by repositories when no variant matches.
var ErrVariantNotFound = errors.New("catalog: variant not found")

// Variant is the canonical catalog entry for a sellable variant, keyed by
// the platform variant identifier.
//
// Classification attributes are pointers: a nil value records that the
// attribute is absent upstream (an explicit clear), not that it is unknown.
type Variant struct {
	VariantID         string
	SKU               string
	Title             string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	InventoryQuantity int64
	Vendor            *string
	Distributor       *string
	Tags              []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// VariantRepository persists catalog variants.
type VariantRepository interface {
	// UpsertVariant inserts or replaces a variant by its identifier.
	// Nil classification attributes overwrite any stored value, so
	// attributes deleted upstream are cleared locally rather than left
	// stale.
	UpsertVariant(ctx context.Context, v *Variant) error

	// ListVariantIDs returns all known variant identifiers, for batching
	// by the inventory sync pipeline.
	ListVariantIDs(ctx context.Context) ([]string, error)

	// FindByID returns a variant by its identifier.
	FindByID(ctx context.Context, variantID string) (*Variant, error)
}
