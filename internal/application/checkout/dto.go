package checkout

import (
	"time"

	"github.com/google/uuid"
	identityapp "github.com/marketplace/backend/internal/application/identity"
	paymentapp "github.com/marketplace/backend/internal/application/payment"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CartItem is one line of the client cart
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,min=1,max=1000"`
}

// Contact is the buyer's contact information captured at checkout
type Contact struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
}

// CheckoutRequest places one order per vendor and starts the payment
type CheckoutRequest struct {
	Items           []CartItem          `json:"items" binding:"required,min=1,dive"`
	Currency        string              `json:"currency" binding:"omitempty,iso4217"`
	ShippingAddress valueobject.Address `json:"shipping_address" binding:"required"`
	Contact         Contact             `json:"contact" binding:"required"`
	GatewayType     string              `json:"gateway_type" binding:"required"`
	ReturnURL       string              `json:"return_url" binding:"omitempty,url"`
	Metadata        map[string]string   `json:"metadata"`
}

// CheckoutResponse summarizes the placed orders and the payment outcome
type CheckoutResponse struct {
	CheckoutID uuid.UUID                 `json:"checkout_id"`
	Orders     []OrderResponse           `json:"orders"`
	GrandTotal decimal.Decimal           `json:"grand_total"`
	Currency   string                    `json:"currency"`
	Payment    *paymentapp.PaymentResult `json:"payment"`
	// Account is set when checkout created a guest account
	Account *identityapp.AuthResult `json:"account,omitempty"`
}

// Principal is the caller an order is shown to
type Principal struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Admin    bool
}

// ListOrdersRequest filters order listings
type ListOrdersRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search"`
	Status   string `form:"status"`
}

// FulfilmentRequest moves a vendor order forward
type FulfilmentRequest struct {
	Status         string `json:"status" binding:"required,oneof=processing shipped delivered"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
}

// CancelRequest cancels an unpaid order
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderItemResponse represents an order line
type OrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int64           `json:"quantity"`
	UnitBasePrice  decimal.Decimal `json:"unit_base_price"`
	UnitCommission decimal.Decimal `json:"unit_commission"`
	UnitVAT        decimal.Decimal `json:"unit_vat"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineBase       decimal.Decimal `json:"line_base"`
	LineCommission decimal.Decimal `json:"line_commission"`
	LineVAT        decimal.Decimal `json:"line_vat"`
	LineTotal      decimal.Decimal `json:"line_total"`
	PricingRule    string          `json:"pricing_rule"`
}

// OrderResponse represents a vendor order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CheckoutID      uuid.UUID           `json:"checkout_id"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	VendorID        uuid.UUID           `json:"vendor_id"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	ExchangeRate    decimal.Decimal     `json:"exchange_rate"`
	Items           []OrderItemResponse `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Commission      decimal.Decimal     `json:"commission"`
	CommissionRate  decimal.Decimal     `json:"commission_rate"`
	VAT             decimal.Decimal     `json:"vat"`
	Shipping        decimal.Decimal     `json:"shipping"`
	Total           decimal.Decimal     `json:"total"`
	VendorPayout    decimal.Decimal     `json:"vendor_payout"`
	ShippingAddress valueobject.Address `json:"shipping_address"`
	ContactEmail    string              `json:"contact_email"`
	ContactPhone    string              `json:"contact_phone,omitempty"`
	PaymentGateway  string              `json:"payment_gateway"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	Version         int                 `json:"version"`
}

// ToOrderResponse converts a domain Order
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:             item.ID,
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
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CheckoutID:      o.CheckoutID,
		CustomerID:      o.CustomerID,
		VendorID:        o.VendorID,
		Status:          o.Status.String(),
		Currency:        o.Currency.String(),
		ExchangeRate:    o.ExchangeRate,
		Items:           items,
		Subtotal:        o.Subtotal,
		Commission:      o.Commission,
		CommissionRate:  o.CommissionRate,
		VAT:             o.VAT,
		Shipping:        o.Shipping,
		Total:           o.Total,
		VendorPayout:    o.VendorPayout,
		ShippingAddress: o.ShippingAddress,
		ContactEmail:    o.ContactEmail,
		ContactPhone:    o.ContactPhone,
		PaymentGateway:  o.PaymentGateway,
		TrackingNumber:  o.TrackingNumber,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		Version:         o.Version,
	}
}

// ToOrderResponses converts a list of orders
func ToOrderResponses(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out
}
