package models

import (
	"time"

	"github.com/shelfwise/backend/internal/domain/analytics"
)

// CorrelationModel is the persistence model for one co-purchase edge.
//
// The composite primary key over (product_a, product_b) holds the normalized
// pair invariant: product_a sorts strictly below product_b, so each unordered
// pair appears exactly once.
type CorrelationModel struct {
	ProductA        string    `gorm:"type:varchar(128);primaryKey"`
	ProductB        string    `gorm:"type:varchar(128);primaryKey"`
	CoPurchaseCount int64     `gorm:"not null;index:idx_correlations_count,sort:desc"`
	Score           float64   `gorm:"not null"`
	ComputedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CorrelationModel) TableName() string {
	return "product_correlations"
}

// ToDomain converts the persistence model to a domain CorrelationEdge.
func (m *CorrelationModel) ToDomain() analytics.CorrelationEdge {
	return analytics.CorrelationEdge{
		ProductA:        m.ProductA,
		ProductB:        m.ProductB,
		CoPurchaseCount: m.CoPurchaseCount,
		Score:           m.Score,
		ComputedAt:      m.ComputedAt,
	}
}
