package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the vendor Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	CheckoutID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	VendorID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status           order.Status        `gorm:"type:varchar(20);not null;default:'pending_payment';index"`
	Currency         string              `gorm:"type:varchar(3);not null"`
	ExchangeRate     decimal.Decimal     `gorm:"type:decimal(18,6);not null;default:1"`
	Items            []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	Subtotal         decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Commission       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	CommissionRate   decimal.Decimal     `gorm:"type:decimal(8,4);not null;default:0"`
	VAT              decimal.Decimal     `gorm:"column:vat;type:decimal(18,2);not null;default:0"`
	Shipping         decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Total            decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	VendorPayout     decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingAddress  valueobject.Address `gorm:"type:text;serializer:json"`
	ContactEmail     string              `gorm:"type:varchar(200)"`
	ContactPhone     string              `gorm:"type:varchar(50)"`
	PaymentGateway   string              `gorm:"type:varchar(20)"`
	TrackingNumber   string              `gorm:"type:varchar(100)"`
	CancelReason     string              `gorm:"type:varchar(500)"`
	PaidAt           *time.Time          `gorm:"index"`
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	PayoutReleasedAt *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		CheckoutID:        m.CheckoutID,
		CustomerID:        m.CustomerID,
		VendorID:          m.VendorID,
		Status:            m.Status,
		Currency:          valueobject.Currency(m.Currency),
		ExchangeRate:      m.ExchangeRate,
		Subtotal:          m.Subtotal,
		Commission:        m.Commission,
		CommissionRate:    m.CommissionRate,
		VAT:               m.VAT,
		Shipping:          m.Shipping,
		Total:             m.Total,
		VendorPayout:      m.VendorPayout,
		ShippingAddress:   m.ShippingAddress,
		ContactEmail:      m.ContactEmail,
		ContactPhone:      m.ContactPhone,
		PaymentGateway:    m.PaymentGateway,
		TrackingNumber:    m.TrackingNumber,
		CancelReason:      m.CancelReason,
		PaidAt:            m.PaidAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		PayoutReleasedAt:  m.PayoutReleasedAt,
		Items:             make([]order.Item, len(m.Items)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:      o.OrderNumber,
		CheckoutID:       o.CheckoutID,
		CustomerID:       o.CustomerID,
		VendorID:         o.VendorID,
		Status:           o.Status,
		Currency:         o.Currency.String(),
		ExchangeRate:     o.ExchangeRate,
		Subtotal:         o.Subtotal,
		Commission:       o.Commission,
		CommissionRate:   o.CommissionRate,
		VAT:              o.VAT,
		Shipping:         o.Shipping,
		Total:            o.Total,
		VendorPayout:     o.VendorPayout,
		ShippingAddress:  o.ShippingAddress,
		ContactEmail:     o.ContactEmail,
		ContactPhone:     o.ContactPhone,
		PaymentGateway:   o.PaymentGateway,
		TrackingNumber:   o.TrackingNumber,
		CancelReason:     o.CancelReason,
		PaidAt:           o.PaidAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		PayoutReleasedAt: o.PayoutReleasedAt,
		Items:            make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.ID, o.Items[i])
	}
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName    string          `gorm:"type:varchar(200);not null"`
	Quantity       int64           `gorm:"not null"`
	UnitBasePrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCommission decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitVAT        decimal.Decimal `gorm:"column:unit_vat;type:decimal(18,4);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineBase       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineCommission decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineVAT        decimal.Decimal `gorm:"column:line_vat;type:decimal(18,2);not null"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PricingRule    string          `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Item.
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:             m.ID,
		OrderID:        m.OrderID,
		ProductID:      m.ProductID,
		ProductName:    m.ProductName,
		Quantity:       m.Quantity,
		UnitBasePrice:  m.UnitBasePrice,
		UnitCommission: m.UnitCommission,
		UnitVAT:        m.UnitVAT,
		UnitPrice:      m.UnitPrice,
		LineBase:       m.LineBase,
		LineCommission: m.LineCommission,
		LineVAT:        m.LineVAT,
		LineTotal:      m.LineTotal,
		PricingRule:    m.PricingRule,
	}
}

// OrderItemModelFromDomain creates a persistence model from a domain Item.
func OrderItemModelFromDomain(orderID uuid.UUID, item order.Item) OrderItemModel {
	return OrderItemModel{
		ID:             item.ID,
		OrderID:        orderID,
		ProductID:      item.ProductID,
		ProductName:    item.ProductName,
		Quantity:       item.Quantity,
		UnitBasePrice:  item.UnitBasePrice,
		UnitCommission: item.UnitCommission,
		UnitVAT:        item.UnitVAT,
		UnitPrice:      item.UnitPrice,
		LineBase:       item.LineBase,
		LineCommission: item.LineCommission,
		LineVAT:        item.LineVAT,
		LineTotal:      item.LineTotal,
		PricingRule:    item.PricingRule,
	}
}
