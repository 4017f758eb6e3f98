package sales

import (
	"context"
	"time"
)

// OrderRepository persists ingested orders and their line items.
//
// All writes are idempotent upserts keyed by the entity's natural key;
// concurrent calls for the same key serialize at the storage layer.
type OrderRepository interface {
	// UpsertOrder inserts or merges an order by its platform identifier.
	// The derived IsReturningCustomer flag is not touched on merge.
	UpsertOrder(ctx context.Context, order *Order) error

	// UpsertItems inserts or merges the order's line items, keyed by
	// (order, variant key, position). A retried page updates quantity and
	// price in place rather than creating duplicate rows.
	UpsertItems(ctx context.Context, order *Order) error

	// MaxPlacedAt returns the maximum persisted order timestamp, or the
	// zero time when no orders exist.
	MaxPlacedAt(ctx context.Context) (time.Time, error)

	// ReclassifyReturningCustomers recomputes is_returning_customer for
	// the full order table in one transaction: customers appearing on two
	// or more orders are returning, all others are not. Idempotent.
	ReclassifyReturningCustomers(ctx context.Context) (int64, error)

	// ListVariantKeys returns the distinct catalog variant keys referenced
	// by persisted line items. Synthesized keys for custom sale items are
	// excluded since they have no catalog identity to refresh.
	ListVariantKeys(ctx context.Context) ([]string, error)

	// CountOrders returns the number of persisted orders.
	CountOrders(ctx context.Context) (int64, error)

	// CountItems returns the number of persisted line items.
	CountItems(ctx context.Context) (int64, error)
}
