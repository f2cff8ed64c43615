package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the state of a payment transaction
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionRefunded  TransactionStatus = "refunded"
	// TransactionReview holds money captured for orders that could no longer
	// take it and that the gateway would not refund. An admin settles it.
	TransactionReview TransactionStatus = "review"
)

// IsFinal returns true if no further transitions are possible apart from refunds
func (s TransactionStatus) IsFinal() bool {
	return s != TransactionPending
}

// CompletesFrom lists the states a transaction may move to s from. The
// store uses it to write each completion at most once.
func (s TransactionStatus) CompletesFrom() []TransactionStatus {
	switch s {
	case TransactionSucceeded, TransactionFailed, TransactionCancelled:
		return []TransactionStatus{TransactionPending}
	case TransactionRefunded:
		return []TransactionStatus{TransactionPending, TransactionSucceeded, TransactionFailed, TransactionCancelled}
	case TransactionReview:
		return []TransactionStatus{TransactionPending, TransactionFailed, TransactionCancelled}
	default:
		return nil
	}
}

// FromGatewayStatus maps a normalized gateway status
func FromGatewayStatus(s GatewayStatus) TransactionStatus {
	switch s {
	case GatewayStatusSucceeded:
		return TransactionSucceeded
	case GatewayStatusFailed:
		return TransactionFailed
	case GatewayStatusCancelled:
		return TransactionCancelled
	case GatewayStatusRefunded:
		return TransactionRefunded
	default:
		return TransactionPending
	}
}

const (
	AggregateTypeTransaction   = "PaymentTransaction"
	TopicPaymentTransactions   = "payment_transactions"
	EventTypePaymentInitiated  = "payment.initiated"
	EventTypePaymentSucceeded  = "payment.succeeded"
	EventTypePaymentFailed     = "payment.failed"
	EventTypePaymentRefunded   = "payment.refunded"
	EventTypePaymentReview     = "payment.review"
	defaultTransactionRefLabel = "PAY"
)

// ErrAmountMismatch is returned when the requested amount differs from what is owed
var ErrAmountMismatch = shared.NewDomainError("AMOUNT_MISMATCH", "Payment amount does not match the order total")

// Transaction records one attempt to pay a checkout
type Transaction struct {
	shared.BaseAggregateRoot
	Reference        string
	CheckoutID       uuid.UUID
	CustomerID       uuid.UUID
	OrderIDs         []uuid.UUID
	Gateway          GatewayType
	Amount           decimal.Decimal
	Currency         string
	Status           TransactionStatus
	GatewayReference string
	RedirectURL      string
	PollURL          string
	ReturnURL        string
	FailureReason    string
	Metadata         map[string]string
	CompletedAt      *time.Time
}

// NewTransaction starts a pending payment for the given orders
func NewTransaction(checkoutID, customerID uuid.UUID, orderIDs []uuid.UUID, gateway GatewayType, amount decimal.Decimal, currency, returnURL string, metadata map[string]string) (*Transaction, error) {
	if !gateway.IsValid() {
		return nil, shared.NewDomainError("INVALID_GATEWAY", fmt.Sprintf("Unsupported gateway %q", gateway))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if len(orderIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_ORDER", "A payment must cover at least one order")
	}
	t := &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CheckoutID:        checkoutID,
		CustomerID:        customerID,
		OrderIDs:          orderIDs,
		Gateway:           gateway,
		Amount:            amount.Round(2),
		Currency:          currency,
		Status:            TransactionPending,
		ReturnURL:         returnURL,
		Metadata:          redactMetadata(metadata),
	}
	t.Reference = fmt.Sprintf("%s-%s", defaultTransactionRefLabel, t.ID.String()[:8])
	return t, nil
}

// sensitive keys never leave the request
var sensitiveMetadata = map[string]bool{
	"card_number": true,
	"cvv":         true,
	"card_token":  true,
	"pan":         true,
}

func redactMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if sensitiveMetadata[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// Initiated records the gateway's first answer
func (t *Transaction) Initiated(resp *CreatePaymentResponse) {
	t.GatewayReference = resp.GatewayReference
	t.RedirectURL = resp.RedirectURL
	t.PollURL = resp.PollURL
	t.Touch()
	t.AddDomainEvent(NewTransactionEvent(EventTypePaymentInitiated, t))
}

// Complete applies a final gateway status. Returns false when the
// transaction was already final so callers can skip side effects.
func (t *Transaction) Complete(status GatewayStatus, reason string) (bool, error) {
	if !status.IsFinal() {
		return false, nil
	}
	if t.Status.IsFinal() {
		if t.Status == FromGatewayStatus(status) {
			return false, nil
		}
		if !(t.Status == TransactionSucceeded && status == GatewayStatusRefunded) {
			return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Payment is already %s", t.Status))
		}
	}
	now := time.Now()
	t.Status = FromGatewayStatus(status)
	t.FailureReason = reason
	t.CompletedAt = &now
	t.UpdatedAt = now

	eventType := EventTypePaymentFailed
	switch t.Status {
	case TransactionSucceeded:
		eventType = EventTypePaymentSucceeded
	case TransactionRefunded:
		eventType = EventTypePaymentRefunded
	}
	t.AddDomainEvent(NewTransactionEvent(eventType, t))
	return true, nil
}

// Void cancels a transaction that is still pending. Returns false when it
// already completed.
func (t *Transaction) Void(reason string) bool {
	if t.Status != TransactionPending {
		return false
	}
	changed, _ := t.Complete(GatewayStatusCancelled, reason)
	return changed
}

// CapturedLate records money the gateway took for orders that can no longer
// be paid with it: refunded when the gateway gave it back, otherwise held
// for review.
func (t *Transaction) CapturedLate(refunded bool, reason string) error {
	switch t.Status {
	case TransactionSucceeded, TransactionRefunded, TransactionReview:
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Payment is already %s", t.Status))
	}
	now := time.Now()
	t.FailureReason = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
	if refunded {
		t.Status = TransactionRefunded
		t.AddDomainEvent(NewTransactionEvent(EventTypePaymentRefunded, t))
		return nil
	}
	t.Status = TransactionReview
	t.AddDomainEvent(NewTransactionEvent(EventTypePaymentReview, t))
	return nil
}

// Covers reports whether the transaction pays for the order
func (t *Transaction) Covers(orderID uuid.UUID) bool {
	for _, id := range t.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// Succeeded reports whether money was captured
func (t *Transaction) Succeeded() bool {
	return t.Status == TransactionSucceeded
}

// TransactionEvent carries payment changes on the change feed
type TransactionEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID         `json:"transaction_id"`
	CheckoutID    uuid.UUID         `json:"checkout_id"`
	OrderIDs      []uuid.UUID       `json:"order_ids"`
	Gateway       GatewayType       `json:"gateway"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
}

// NewTransactionEvent creates a TransactionEvent visible to the buyer
func NewTransactionEvent(eventType string, t *Transaction) *TransactionEvent {
	return &TransactionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeTransaction, TopicPaymentTransactions, t.ID, t.CustomerID),
		TransactionID:   t.ID,
		CheckoutID:      t.CheckoutID,
		OrderIDs:        t.OrderIDs,
		Gateway:         t.Gateway,
		Status:          t.Status,
		Amount:          t.Amount,
		Currency:        t.Currency,
	}
}
