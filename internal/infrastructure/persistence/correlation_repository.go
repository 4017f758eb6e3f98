package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shelfwise/backend/internal/domain/analytics"
	"github.com/shelfwise/backend/internal/infrastructure/persistence/models"
)

// GormCorrelationRepository implements analytics.CorrelationRepository using GORM
type GormCorrelationRepository struct {
	db *gorm.DB
}

// NewGormCorrelationRepository creates a new GormCorrelationRepository
func NewGormCorrelationRepository(db *gorm.DB) *GormCorrelationRepository {
	return &GormCorrelationRepository{db: db}
}

// rebuildSQL regenerates the edge set from the line item table.
//
// The self-join keeps only normalized pairs (variant_key <) so each unordered
// pair is produced once; COUNT(DISTINCT order_id) counts shared orders rather
// than shared cart lines. The score divides by the order reach of the pair's
// lower member.
const rebuildSQL = `
INSERT INTO product_correlations (product_a, product_b, co_purchase_count, score, computed_at)
SELECT
	pairs.product_a,
	pairs.product_b,
	pairs.co_count,
	(pairs.co_count * 1.0) / reach.order_count,
	?
FROM (
	SELECT
		i1.variant_key AS product_a,
		i2.variant_key AS product_b,
		COUNT(DISTINCT i1.order_id) AS co_count
	FROM order_items i1
	JOIN order_items i2
		ON i1.order_id = i2.order_id
		AND i1.variant_key < i2.variant_key
	GROUP BY i1.variant_key, i2.variant_key
	HAVING COUNT(DISTINCT i1.order_id) >= ?
) pairs
JOIN (
	SELECT variant_key, COUNT(DISTINCT order_id) AS order_count
	FROM order_items
	GROUP BY variant_key
) reach ON reach.variant_key = pairs.product_a`

// Rebuild regenerates the whole correlation snapshot inside one transaction.
// Readers outside the transaction keep seeing the previous snapshot until
// commit, never an empty table.
func (r *GormCorrelationRepository) Rebuild(ctx context.Context) (int64, error) {
	var written int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM product_correlations`).Error; err != nil {
			return err
		}
		result := tx.Exec(rebuildSQL, time.Now(), analytics.MinCoPurchases)
		if result.Error != nil {
			return result.Error
		}
		written = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// TopByCount returns edges ranked by co-purchase count, descending, with the
// normalized pair as a deterministic tie-break.
func (r *GormCorrelationRepository) TopByCount(ctx context.Context, limit int) ([]analytics.CorrelationEdge, error) {
	if limit <= 0 {
		limit = analytics.DefaultTopLimit
	}

	var rows []models.CorrelationModel
	err := r.db.WithContext(ctx).
		Order("co_purchase_count DESC").
		Order("product_a").
		Order("product_b").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	edges := make([]analytics.CorrelationEdge, len(rows))
	for i, row := range rows {
		edges[i] = row.ToDomain()
	}
	return edges, nil
}

// Ensure GormCorrelationRepository implements the repository port
var _ analytics.CorrelationRepository = (*GormCorrelationRepository)(nil)
