package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shelfwise/backend/internal/domain/catalog"
	"github.com/shelfwise/backend/internal/infrastructure/persistence/models"
)

// GormVariantRepository implements catalog.VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// UpsertVariant inserts or replaces a variant by its identifier. All mutable
// columns are assigned on conflict, including the nullable classification
// attributes, so a nil Vendor or Distributor clears the stored value.
func (r *GormVariantRepository) UpsertVariant(ctx context.Context, v *catalog.Variant) error {
	model := models.VariantModelFromDomain(v)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku",
				"title",
				"price",
				"cost",
				"inventory_quantity",
				"vendor",
				"distributor",
				"tags",
				"updated_at",
			}),
		}).
		Create(model).Error
}

// ListVariantIDs returns all known variant identifiers.
func (r *GormVariantRepository) ListVariantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.VariantModel{}).
		Order("variant_id").
		Pluck("variant_id", &ids).Error
	return ids, err
}

// FindByID returns a variant by its identifier.
func (r *GormVariantRepository) FindByID(ctx context.Context, variantID string) (*catalog.Variant, error) {
	var model models.VariantModel
	if err := r.db.WithContext(ctx).First(&model, "variant_id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormVariantRepository implements the repository port
var _ catalog.VariantRepository = (*GormVariantRepository)(nil)
