package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
)

// WalletModel is the persistence model for a vendor Wallet.
type WalletModel struct {
	AggregateModel
	VendorID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Currency  string          `gorm:"type:varchar(3);not null"`
	Available decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Pending   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (WalletModel) TableName() string {
	return "wallets"
}

// ToDomain converts the persistence model to a domain Wallet.
func (m *WalletModel) ToDomain() *wallet.Wallet {
	return &wallet.Wallet{
		BaseAggregateRoot: m.ToAggregateRoot(),
		VendorID:          m.VendorID,
		Currency:          valueobject.Currency(m.Currency),
		Available:         m.Available,
		Pending:           m.Pending,
	}
}

// WalletModelFromDomain creates a persistence model from a domain Wallet.
func WalletModelFromDomain(w *wallet.Wallet) *WalletModel {
	m := &WalletModel{
		VendorID:  w.VendorID,
		Currency:  w.Currency.String(),
		Available: w.Available,
		Pending:   w.Pending,
	}
	m.FromDomainAggregateRoot(w.BaseAggregateRoot)
	return m
}

// WalletTransactionModel is an append-only wallet movement.
type WalletTransactionModel struct {
	BaseModel
	WalletID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	VendorID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type           wallet.TransactionType `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	AvailableAfter decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	PendingAfter   decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Reference      string                 `gorm:"type:varchar(100)"`
	Description    string                 `gorm:"type:varchar(500)"`
	OrderID        *uuid.UUID             `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// ToDomain converts the persistence model to a domain wallet Transaction.
func (m *WalletTransactionModel) ToDomain() wallet.Transaction {
	return wallet.Transaction{
		BaseEntity:     m.BaseModel.ToDomain(),
		WalletID:       m.WalletID,
		VendorID:       m.VendorID,
		Type:           m.Type,
		Amount:         m.Amount,
		AvailableAfter: m.AvailableAfter,
		PendingAfter:   m.PendingAfter,
		Reference:      m.Reference,
		Description:    m.Description,
		OrderID:        m.OrderID,
	}
}

// WalletTransactionModelFromDomain creates a persistence model from a domain wallet Transaction.
func WalletTransactionModelFromDomain(t wallet.Transaction) *WalletTransactionModel {
	m := &WalletTransactionModel{
		WalletID:       t.WalletID,
		VendorID:       t.VendorID,
		Type:           t.Type,
		Amount:         t.Amount,
		AvailableAfter: t.AvailableAfter,
		PendingAfter:   t.PendingAfter,
		Reference:      t.Reference,
		Description:    t.Description,
		OrderID:        t.OrderID,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// CommissionModel is the persistence model for a platform Commission.
type CommissionModel struct {
	AggregateModel
	OrderID    uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	VendorID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Rate       decimal.Decimal         `gorm:"type:decimal(8,4);not null"`
	BaseAmount decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Amount     decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Currency   string                  `gorm:"type:varchar(3);not null"`
	Status     wallet.CommissionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	SettledAt  *time.Time
}

// TableName returns the table name for GORM
func (CommissionModel) TableName() string {
	return "commissions"
}

// ToDomain converts the persistence model to a domain Commission.
func (m *CommissionModel) ToDomain() *wallet.Commission {
	return &wallet.Commission{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderID:           m.OrderID,
		VendorID:          m.VendorID,
		Rate:              m.Rate,
		BaseAmount:        m.BaseAmount,
		Amount:            m.Amount,
		Currency:          valueobject.Currency(m.Currency),
		Status:            m.Status,
		SettledAt:         m.SettledAt,
	}
}

// CommissionModelFromDomain creates a persistence model from a domain Commission.
func CommissionModelFromDomain(c *wallet.Commission) *CommissionModel {
	m := &CommissionModel{
		OrderID:    c.OrderID,
		VendorID:   c.VendorID,
		Rate:       c.Rate,
		BaseAmount: c.BaseAmount,
		Amount:     c.Amount,
		Currency:   c.Currency.String(),
		Status:     c.Status,
		SettledAt:  c.SettledAt,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
