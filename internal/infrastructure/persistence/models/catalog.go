package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwise/backend/internal/domain/catalog"
)

// VariantModel is the persistence model for a catalog Variant.
//
// Vendor and Distributor stay nullable on purpose: a NULL records that the
// attribute was absent upstream, which is different from an empty string.
type VariantModel struct {
	VariantID         string          `gorm:"type:varchar(64);primary_key"`
	SKU               string          `gorm:"type:varchar(64);not null;default:'';index"`
	Title             string          `gorm:"type:varchar(255);not null;default:''"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Cost              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InventoryQuantity int64           `gorm:"not null;default:0"`
	Vendor            *string         `gorm:"type:varchar(128)"`
	Distributor       *string         `gorm:"type:varchar(128)"`
	Tags              string          `gorm:"type:text;not null;default:''"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "variants"
}

// ToDomain converts the persistence model to a domain Variant entity.
func (m *VariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		VariantID:         m.VariantID,
		SKU:               m.SKU,
		Title:             m.Title,
		Price:             m.Price,
		Cost:              m.Cost,
		InventoryQuantity: m.InventoryQuantity,
		Vendor:            m.Vendor,
		Distributor:       m.Distributor,
		Tags:              splitTags(m.Tags),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// VariantModelFromDomain creates a new persistence model from a domain Variant entity.
func VariantModelFromDomain(v *catalog.Variant) *VariantModel {
	return &VariantModel{
		VariantID:         v.VariantID,
		SKU:               v.SKU,
		Title:             v.Title,
		Price:             v.Price,
		Cost:              v.Cost,
		InventoryQuantity: v.InventoryQuantity,
		Vendor:            v.Vendor,
		Distributor:       v.Distributor,
		Tags:              strings.Join(v.Tags, ","),
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
