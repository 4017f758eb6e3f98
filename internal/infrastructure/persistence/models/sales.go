package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shelfwise/backend/internal/domain/sales"
)

// OrderModel is the persistence model for the Order aggregate root.
//
// PlatformOrderID carries the unique index that makes ingestion idempotent:
// re-pulling the same order merges into the existing row.
type OrderModel struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primary_key"`
	PlatformOrderID     string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_orders_platform_order_id"`
	CustomerID          *string          `gorm:"type:varchar(64);index"`
	ContactDigest       string           `gorm:"type:varchar(64);index"`
	TotalAmount         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SubtotalAmount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Currency            string           `gorm:"type:varchar(8);not null;default:''"`
	FinancialStatus     string           `gorm:"type:varchar(32);not null;default:''"`
	FulfillmentStatus   string           `gorm:"type:varchar(32);not null;default:''"`
	PlacedAt            time.Time        `gorm:"not null;index"`
	IsReturningCustomer bool             `gorm:"not null;default:false"`
	Items               []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt           time.Time        `gorm:"not null"`
	UpdatedAt           time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *sales.Order {
	order := &sales.Order{
		ID:                  m.ID,
		PlatformOrderID:     m.PlatformOrderID,
		CustomerID:          m.CustomerID,
		ContactDigest:       m.ContactDigest,
		TotalAmount:         m.TotalAmount,
		SubtotalAmount:      m.SubtotalAmount,
		DiscountAmount:      m.DiscountAmount,
		Currency:            m.Currency,
		FinancialStatus:     m.FinancialStatus,
		FulfillmentStatus:   m.FulfillmentStatus,
		PlacedAt:            m.PlacedAt,
		IsReturningCustomer: m.IsReturningCustomer,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
		Items:               make([]sales.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = *item.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *sales.Order) {
	m.ID = o.ID
	m.PlatformOrderID = o.PlatformOrderID
	m.CustomerID = o.CustomerID
	m.ContactDigest = o.ContactDigest
	m.TotalAmount = o.TotalAmount
	m.SubtotalAmount = o.SubtotalAmount
	m.DiscountAmount = o.DiscountAmount
	m.Currency = o.Currency
	m.FinancialStatus = o.FinancialStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.PlacedAt = o.PlacedAt
	m.IsReturningCustomer = o.IsReturningCustomer
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&item)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for the OrderItem entity.
//
// The composite unique index over (order, variant key, position) is the line
// item identity: retried pages merge in place instead of duplicating rows.
type OrderItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_identity,priority:1"`
	VariantKey string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_order_items_identity,priority:2;index:idx_order_items_variant"`
	Position   int             `gorm:"not null;uniqueIndex:idx_order_items_identity,priority:3"`
	Title      string          `gorm:"type:varchar(255);not null;default:''"`
	Quantity   int64           `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem entity.
func (m *OrderItemModel) ToDomain() *sales.OrderItem {
	return &sales.OrderItem{
		ID:         m.ID,
		OrderID:    m.OrderID,
		VariantKey: m.VariantKey,
		Title:      m.Title,
		Position:   m.Position,
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem entity.
func OrderItemModelFromDomain(i *sales.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:         i.ID,
		OrderID:    i.OrderID,
		VariantKey: i.VariantKey,
		Title:      i.Title,
		Position:   i.Position,
		Quantity:   i.Quantity,
		UnitPrice:  i.UnitPrice,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}
