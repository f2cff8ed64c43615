package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// ProcessPaymentRequest is the body of POST /functions/v1/process-payment.
// OrderID is a checkout group ID or a single order ID.
type ProcessPaymentRequest struct {
	OrderID     uuid.UUID         `json:"order_id" binding:"required"`
	GatewayType string            `json:"gateway_type" binding:"required,oneof=paypal iveri paynow"`
	Amount      decimal.Decimal   `json:"amount" binding:"required"`
	Currency    string            `json:"currency" binding:"required,iso4217"`
	ReturnURL   string            `json:"return_url" binding:"omitempty,url"`
	Metadata    map[string]string `json:"metadata"`
}

// StartInput hands a freshly persisted transaction to its gateway.
// Metadata is the unredacted request metadata.
type StartInput struct {
	Transaction *payment.Transaction
	Orders      []*order.Order
	Metadata    map[string]string
	PayerEmail  string
}

// PaymentResult is either a redirect or a synchronous outcome
type PaymentResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"`
	RedirectURL   string    `json:"redirect_url,omitempty"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// CallbackResult reports how a gateway callback was handled
type CallbackResult struct {
	TransactionID    uuid.UUID `json:"transaction_id"`
	Status           string    `json:"status"`
	AlreadyProcessed bool      `json:"already_processed"`
}

// RefundRequest refunds one paid vendor order
type RefundRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// TransactionResponse represents a payment transaction in API responses
type TransactionResponse struct {
	ID               uuid.UUID         `json:"id"`
	Reference        string            `json:"reference"`
	CheckoutID       uuid.UUID         `json:"checkout_id"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	OrderIDs         []uuid.UUID       `json:"order_ids"`
	Gateway          string            `json:"gateway"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	GatewayReference string            `json:"gateway_reference,omitempty"`
	RedirectURL      string            `json:"redirect_url,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// ToTransactionResponse converts a domain Transaction
func ToTransactionResponse(t *payment.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID,
		Reference:        t.Reference,
		CheckoutID:       t.CheckoutID,
		CustomerID:       t.CustomerID,
		OrderIDs:         t.OrderIDs,
		Gateway:          t.Gateway.String(),
		Amount:           t.Amount,
		Currency:         t.Currency,
		Status:           string(t.Status),
		GatewayReference: t.GatewayReference,
		RedirectURL:      t.RedirectURL,
		FailureReason:    t.FailureReason,
		Metadata:         t.Metadata,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

func resultOf(t *payment.Transaction) *PaymentResult {
	return &PaymentResult{
		TransactionID: t.ID,
		Status:        string(t.Status),
		RedirectURL:   t.RedirectURL,
		Success:       t.Status == payment.TransactionSucceeded,
		Error:         t.FailureReason,
	}
}
