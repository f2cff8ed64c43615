package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeCommission = "Commission"
	TopicCommissions        = "commissions"

	EventTypeCommissionRecorded = "commission.recorded"
	EventTypeCommissionSettled  = "commission.settled"
	EventTypeCommissionReversed = "commission.reversed"
)

// CommissionStatus is the state of a platform commission
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "pending"
	CommissionSettled  CommissionStatus = "settled"
	CommissionReversed CommissionStatus = "reversed"
)

// IsValid returns true if the status is valid
func (s CommissionStatus) IsValid() bool {
	switch s {
	case CommissionPending, CommissionSettled, CommissionReversed:
		return true
	}
	return false
}

// Commission is the platform's share of one paid order
type Commission struct {
	shared.BaseAggregateRoot
	OrderID    uuid.UUID
	VendorID   uuid.UUID
	Rate       decimal.Decimal
	BaseAmount decimal.Decimal
	Amount     decimal.Decimal
	Currency   valueobject.Currency
	Status     CommissionStatus
	SettledAt  *time.Time
}

// NewCommission records the commission earned on an order
func NewCommission(orderID, vendorID uuid.UUID, rate, baseAmount, amount decimal.Decimal, currency valueobject.Currency) (*Commission, error) {
	if orderID == uuid.Nil || vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMMISSION", "Order and vendor are required")
	}
	if amount.IsNegative() || baseAmount.IsNegative() || rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Commission amounts cannot be negative")
	}
	c := &Commission{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		VendorID:          vendorID,
		Rate:              rate,
		BaseAmount:        baseAmount,
		Amount:            amount.Round(valueobject.CentPlaces),
		Currency:          currency,
		Status:            CommissionPending,
	}
	c.AddDomainEvent(NewCommissionEvent(EventTypeCommissionRecorded, c))
	return c, nil
}

// Settle marks the commission as earned for good
func (c *Commission) Settle() error {
	if c.Status == CommissionSettled {
		return nil
	}
	if c.Status != CommissionPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle a %s commission", c.Status))
	}
	now := time.Now()
	c.Status = CommissionSettled
	c.SettledAt = &now
	c.UpdatedAt = now
	c.AddDomainEvent(NewCommissionEvent(EventTypeCommissionSettled, c))
	return nil
}

// Reverse cancels the commission after a refund
func (c *Commission) Reverse() error {
	if c.Status == CommissionReversed {
		return nil
	}
	c.Status = CommissionReversed
	c.Touch()
	c.AddDomainEvent(NewCommissionEvent(EventTypeCommissionReversed, c))
	return nil
}

// CommissionEvent carries commission changes on the change feed
type CommissionEvent struct {
	shared.BaseDomainEvent
	CommissionID uuid.UUID        `json:"commission_id"`
	OrderID      uuid.UUID        `json:"order_id"`
	VendorID     uuid.UUID        `json:"vendor_id"`
	Amount       decimal.Decimal  `json:"amount"`
	Status       CommissionStatus `json:"status"`
}

// NewCommissionEvent creates a CommissionEvent
func NewCommissionEvent(eventType string, c *Commission) *CommissionEvent {
	return &CommissionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCommission, TopicCommissions, c.ID, c.VendorID),
		CommissionID:    c.ID,
		OrderID:         c.OrderID,
		VendorID:        c.VendorID,
		Amount:          c.Amount,
		Status:          c.Status,
	}
}

// CommissionSummary aggregates commissions by status
type CommissionSummary struct {
	Pending  decimal.Decimal `json:"pending"`
	Settled  decimal.Decimal `json:"settled"`
	Reversed decimal.Decimal `json:"reversed"`
	Count    int64           `json:"count"`
}

// Earned is what the platform keeps or expects to keep
func (s CommissionSummary) Earned() decimal.Decimal {
	return s.Pending.Add(s.Settled)
}
