package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// Request errors
	ErrPaymentInvalidReference = errors.New("payment: invalid payment reference")
	ErrPaymentInvalidAmount    = errors.New("payment: invalid payment amount")
	ErrPaymentInvalidCurrency  = errors.New("payment: invalid currency")
	ErrPaymentInvalidReturnURL = errors.New("payment: invalid return URL")
	ErrPaymentMissingMetadata  = errors.New("payment: required metadata missing")
	ErrPaymentInvalidQuery     = errors.New("payment: invalid query parameters")

	// Refund errors
	ErrRefundInvalidAmount  = errors.New("refund: invalid refund amount")
	ErrRefundNotSupported   = errors.New("refund: gateway does not support refunds")
	ErrRefundExceedsPayment = errors.New("refund: refund amount exceeds payment")

	// Gateway errors
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayNotEnabled      = errors.New("payment: gateway not enabled")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")
)

// GatewayType identifies a payment processor
type GatewayType string

const (
	GatewayPayPal GatewayType = "paypal"
	GatewayIVeri  GatewayType = "iveri"
	GatewayPaynow GatewayType = "paynow"
)

// ParseGatewayType normalizes a gateway name
func ParseGatewayType(s string) (GatewayType, error) {
	t := GatewayType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrGatewayNotConfigured
	}
	return t, nil
}

// IsValid returns true if the gateway type is valid
func (t GatewayType) IsValid() bool {
	switch t {
	case GatewayPayPal, GatewayIVeri, GatewayPaynow:
		return true
	default:
		return false
	}
}

// String returns the string representation of GatewayType
func (t GatewayType) String() string {
	return string(t)
}

// GatewayStatus is a payment status normalized across gateways
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusCancelled GatewayStatus = "cancelled"
	GatewayStatusRefunded  GatewayStatus = "refunded"
)

// IsFinal returns true if the status will not change anymore
func (s GatewayStatus) IsFinal() bool {
	return s != GatewayStatusPending
}

// IsSuccess returns true if money was captured
func (s GatewayStatus) IsSuccess() bool {
	return s == GatewayStatusSucceeded
}

// CreatePaymentRequest asks a gateway to collect money for a checkout
type CreatePaymentRequest struct {
	// TransactionID is our payment transaction, used as the merchant reference
	TransactionID uuid.UUID
	// Reference is a human-readable reference shown to the payer
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Description string
	// ReturnURL is where redirect gateways send the buyer afterwards
	ReturnURL string
	// NotifyURL receives asynchronous gateway callbacks
	NotifyURL string
	// PayerEmail is passed to gateways that require it
	PayerEmail string
	// Metadata carries gateway-specific inputs such as card tokens or the
	// mobile-money phone number
	Metadata map[string]string
}

// Validate validates the create payment request
func (r *CreatePaymentRequest) Validate() error {
	if r.TransactionID == uuid.Nil || r.Reference == "" {
		return ErrPaymentInvalidReference
	}
	if !r.Amount.IsPositive() {
		return ErrPaymentInvalidAmount
	}
	if len(r.Currency) != 3 {
		return ErrPaymentInvalidCurrency
	}
	if r.ReturnURL != "" {
		u, err := url.Parse(r.ReturnURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrPaymentInvalidReturnURL
		}
	}
	return nil
}

// Meta returns a metadata value or ""
func (r *CreatePaymentRequest) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(r.Metadata[key])
}

// CreatePaymentResponse is the gateway's answer. Redirect gateways set
// RedirectURL; synchronous gateways return a final Status.
type CreatePaymentResponse struct {
	GatewayType      GatewayType
	GatewayReference string
	Status           GatewayStatus
	RedirectURL      string
	// PollURL is where the payment status can be re-queried
	PollURL       string
	FailureReason string
	RawResponse   string
}

// IsRedirect reports whether the buyer must be sent to the gateway
func (r *CreatePaymentResponse) IsRedirect() bool {
	return r.RedirectURL != ""
}

// QueryPaymentRequest identifies a payment to re-query
type QueryPaymentRequest struct {
	GatewayReference string
	PollURL          string
}

// Validate validates the query request
func (r *QueryPaymentRequest) Validate() error {
	if r.GatewayReference == "" && r.PollURL == "" {
		return ErrPaymentInvalidQuery
	}
	return nil
}

// QueryPaymentResponse reports the gateway's view of a payment
type QueryPaymentResponse struct {
	GatewayReference string
	Status           GatewayStatus
	PaidAmount       decimal.Decimal
	FailureReason    string
	RawResponse      string
}

// RefundRequest returns money for a captured payment
type RefundRequest struct {
	TransactionID    uuid.UUID
	GatewayReference string
	Amount           decimal.Decimal
	PaymentAmount    decimal.Decimal
	Currency         string
	Reason           string
}

// Validate validates the refund request
func (r *RefundRequest) Validate() error {
	if r.TransactionID == uuid.Nil || r.GatewayReference == "" {
		return ErrPaymentInvalidReference
	}
	if !r.Amount.IsPositive() {
		return ErrRefundInvalidAmount
	}
	if r.Amount.GreaterThan(r.PaymentAmount) {
		return ErrRefundExceedsPayment
	}
	return nil
}

// RefundResponse reports a refund outcome
type RefundResponse struct {
	GatewayRefundID string
	Status          GatewayStatus
	RawResponse     string
}

// Callback is a verified asynchronous notification from a gateway
type Callback struct {
	GatewayType      GatewayType
	GatewayReference string
	// TransactionID is our merchant reference echoed back, when available
	TransactionID uuid.UUID
	Status        GatewayStatus
	Amount        decimal.Decimal
	RawPayload    string
}

// Gateway is the port for external payment processors. Adapters for PayPal,
// iVeri and Paynow live in the infrastructure layer.
type Gateway interface {
	// GatewayType returns the type of this payment gateway
	GatewayType() GatewayType

	// CreatePayment starts a payment. It either returns a redirect or a
	// synchronous result.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// QueryPayment re-queries the status of a payment
	QueryPayment(ctx context.Context, req *QueryPaymentRequest) (*QueryPaymentResponse, error)

	// CreateRefund refunds a captured payment
	CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)

	// VerifyCallback authenticates and parses an asynchronous notification
	VerifyCallback(ctx context.Context, payload []byte, headers map[string]string) (*Callback, error)
}

// GatewayRegistry provides access to configured gateways
type GatewayRegistry interface {
	// GetGateway returns the gateway for the specified type
	GetGateway(gatewayType GatewayType) (Gateway, error)
	// ListGateways returns the enabled gateway types
	ListGateways() []GatewayType
	// IsEnabled returns true if the gateway type is enabled
	IsEnabled(gatewayType GatewayType) bool
}
