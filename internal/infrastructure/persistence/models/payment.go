package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// PaymentTransactionModel is the persistence model for a payment Transaction.
type PaymentTransactionModel struct {
	AggregateModel
	Reference        string                    `gorm:"type:varchar(50);not null;uniqueIndex"`
	CheckoutID       uuid.UUID                 `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID                 `gorm:"type:uuid;not null;index"`
	OrderIDs         []uuid.UUID               `gorm:"type:text;serializer:json"`
	Gateway          payment.GatewayType       `gorm:"type:varchar(20);not null;index:idx_payment_gateway_ref,priority:1"`
	Amount           decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Currency         string                    `gorm:"type:varchar(3);not null"`
	Status           payment.TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	GatewayReference string                    `gorm:"type:varchar(200);index:idx_payment_gateway_ref,priority:2"`
	RedirectURL      string                    `gorm:"type:text"`
	PollURL          string                    `gorm:"type:text"`
	ReturnURL        string                    `gorm:"type:text"`
	FailureReason    string                    `gorm:"type:varchar(500)"`
	Metadata         map[string]string         `gorm:"type:text;serializer:json"`
	CompletedAt      *time.Time
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *PaymentTransactionModel) ToDomain() *payment.Transaction {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &payment.Transaction{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Reference:         m.Reference,
		CheckoutID:        m.CheckoutID,
		CustomerID:        m.CustomerID,
		OrderIDs:          m.OrderIDs,
		Gateway:           m.Gateway,
		Amount:            m.Amount,
		Currency:          m.Currency,
		Status:            m.Status,
		GatewayReference:  m.GatewayReference,
		RedirectURL:       m.RedirectURL,
		PollURL:           m.PollURL,
		ReturnURL:         m.ReturnURL,
		FailureReason:     m.FailureReason,
		Metadata:          metadata,
		CompletedAt:       m.CompletedAt,
	}
}

// PaymentTransactionModelFromDomain creates a persistence model from a domain Transaction.
func PaymentTransactionModelFromDomain(t *payment.Transaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{
		Reference:        t.Reference,
		CheckoutID:       t.CheckoutID,
		CustomerID:       t.CustomerID,
		OrderIDs:         t.OrderIDs,
		Gateway:          t.Gateway,
		Amount:           t.Amount,
		Currency:         t.Currency,
		Status:           t.Status,
		GatewayReference: t.GatewayReference,
		RedirectURL:      t.RedirectURL,
		PollURL:          t.PollURL,
		ReturnURL:        t.ReturnURL,
		FailureReason:    t.FailureReason,
		Metadata:         t.Metadata,
		CompletedAt:      t.CompletedAt,
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}
