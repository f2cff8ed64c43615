package order

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// TopicOrders is the change-feed table for orders
const TopicOrders = "orders"

// Event type constants
const (
	EventTypeOrderCreated   = "order.created"
	EventTypeOrderPaid      = "order.paid"
	EventTypeOrderUpdated   = "order.updated"
	EventTypeOrderDelivered = "order.delivered"
	EventTypeOrderCancelled = "order.cancelled"
	EventTypeOrderRefunded  = "order.refunded"
)

// OrderEvent is raised on every order state change. The customer and the
// vendor both see it on the change feed.
type OrderEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CheckoutID   uuid.UUID       `json:"checkout_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	Status       Status          `json:"status"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	Commission   decimal.Decimal `json:"commission"`
	VendorPayout decimal.Decimal `json:"vendor_payout"`
}

// NewOrderEvent creates an OrderEvent
func NewOrderEvent(eventType string, o *Order) *OrderEvent {
	return &OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, TopicOrders, o.ID, o.CustomerID, o.VendorID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CheckoutID:      o.CheckoutID,
		CustomerID:      o.CustomerID,
		VendorID:        o.VendorID,
		Status:          o.Status,
		Currency:        o.Currency.String(),
		Total:           o.Total,
		Commission:      o.Commission,
		VendorPayout:    o.VendorPayout,
	}
}
