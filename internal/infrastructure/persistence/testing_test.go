package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/infrastructure/persistence/models"
)

// setupTestDB creates an in-memory sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Each sqlite ":memory:" connection is a distinct database; pin the pool
	// to one connection so every statement sees the same schema and data.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.VariantModel{},
		&models.CorrelationModel{},
	)
	require.NoError(t, err)
	return db
}

// testOrder builds a minimal valid order for repository tests.
func testOrder(platformOrderID string, customerID *string, placedAt time.Time, variantKeys ...string) *sales.Order {
	now := time.Now()
	order := &sales.Order{
		ID:              uuid.New(),
		PlatformOrderID: platformOrderID,
		CustomerID:      customerID,
		TotalAmount:     decimal.NewFromInt(100),
		SubtotalAmount:  decimal.NewFromInt(100),
		Currency:        "USD",
		FinancialStatus: "paid",
		PlacedAt:        placedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, key := range variantKeys {
		order.Items = append(order.Items, sales.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			VariantKey: key,
			Title:      "Item " + key,
			Position:   i + 1,
			Quantity:   1,
			UnitPrice:  decimal.NewFromInt(10),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return order
}

func strPtr(s string) *string {
	return &s
}
