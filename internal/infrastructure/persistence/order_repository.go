package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements sales.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// UpsertOrder inserts or merges an order by its platform identifier.
//
// On conflict the mutable order fields are refreshed in place; the stored
// row keeps its primary key, created_at and the derived loyalty flag. After
// the write the order's ID is replaced with the persisted one so line item
// upserts attach to the surviving row.
func (r *GormOrderRepository) UpsertOrder(ctx context.Context, order *sales.Order) error {
	model := models.OrderModelFromDomain(order)

	err := r.db.WithContext(ctx).
		Omit("Items").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform_order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_id",
				"contact_digest",
				"total_amount",
				"subtotal_amount",
				"discount_amount",
				"currency",
				"financial_status",
				"fulfillment_status",
				"placed_at",
				"updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	// The upsert may have merged into an existing row with a different
	// primary key; read it back and re-point the aggregate.
	var persisted models.OrderModel
	if err := r.db.WithContext(ctx).
		Select("id", "is_returning_customer").
		Where("platform_order_id = ?", order.PlatformOrderID).
		First(&persisted).Error; err != nil {
		return err
	}

	order.ID = persisted.ID
	order.IsReturningCustomer = persisted.IsReturningCustomer
	for i := range order.Items {
		order.Items[i].OrderID = persisted.ID
	}
	return nil
}

// UpsertItems inserts or merges the order's line items, keyed by
// (order, variant key, position).
func (r *GormOrderRepository) UpsertItems(ctx context.Context, order *sales.Order) error {
	if len(order.Items) == 0 {
		return nil
	}

	itemModels := make([]models.OrderItemModel, len(order.Items))
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		itemModels[i] = *models.OrderItemModelFromDomain(&order.Items[i])
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "order_id"},
				{Name: "variant_key"},
				{Name: "position"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"quantity",
				"unit_price",
				"updated_at",
			}),
		}).
		Create(&itemModels).Error
}

// MaxPlacedAt returns the maximum persisted order timestamp, or the zero
// time when the table is empty.
func (r *GormOrderRepository) MaxPlacedAt(ctx context.Context) (time.Time, error) {
	var raw sql.NullTime
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("MAX(placed_at)").
		Scan(&raw).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if !raw.Valid {
		return time.Time{}, nil
	}
	return raw.Time, nil
}

// ReclassifyReturningCustomers recomputes is_returning_customer in one
// statement. A customer's identity is the platform customer id when present,
// otherwise the hashed contact; orders with neither are never returning.
// Only rows whose stored flag disagrees with the recomputed one are written,
// so a back-to-back run touches nothing. Returns the number of orders
// flagged as returning.
func (r *GormOrderRepository) ReclassifyReturningCustomers(ctx context.Context) (int64, error) {
	var flagged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Rows matching the WHERE clause hold the inverse of the computed
		// flag, so flipping them is the full recomputation.
		if err := tx.Exec(`
			UPDATE orders SET
				is_returning_customer = NOT is_returning_customer,
				updated_at = ?
			WHERE is_returning_customer <> (
				COALESCE(customer_id, NULLIF(contact_digest, '')) IS NOT NULL
				AND COALESCE(customer_id, NULLIF(contact_digest, '')) IN (
					SELECT ident FROM (
						SELECT COALESCE(customer_id, NULLIF(contact_digest, '')) AS ident
						FROM orders
						WHERE COALESCE(customer_id, NULLIF(contact_digest, '')) IS NOT NULL
						GROUP BY COALESCE(customer_id, NULLIF(contact_digest, ''))
						HAVING COUNT(*) >= 2
					) repeat_buyers
				)
			)`, time.Now()).Error; err != nil {
			return err
		}

		return tx.Model(&models.OrderModel{}).
			Where("is_returning_customer = ?", true).
			Count(&flagged).Error
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

// ListVariantKeys returns the distinct catalog variant keys referenced by
// line items, excluding synthesized custom item keys.
func (r *GormOrderRepository) ListVariantKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Distinct("variant_key").
		Where("variant_key NOT LIKE ?", "custom:%").
		Order("variant_key").
		Pluck("variant_key", &keys).Error
	return keys, err
}

// CountOrders returns the number of persisted orders.
func (r *GormOrderRepository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Count(&count).Error
	return count, err
}

// CountItems returns the number of persisted line items.
func (r *GormOrderRepository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItemModel{}).Count(&count).Error
	return count, err
}

// Ensure GormOrderRepository implements the repository port
var _ sales.OrderRepository = (*GormOrderRepository)(nil)
