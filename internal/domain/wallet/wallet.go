package wallet

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeWallet = "Wallet"
	TopicWallets        = "wallets"

	EventTypeWalletCredited = "wallet.credited"
	EventTypeWalletReleased = "wallet.released"
	EventTypeWalletDebited  = "wallet.debited"
	EventTypeWalletPayout   = "wallet.payout_requested"
)

// TransactionType is the kind of wallet movement
type TransactionType string

const (
	// TransactionCredit adds an order payout to the pending balance
	TransactionCredit TransactionType = "credit"
	// TransactionRelease moves a held amount from pending to available
	TransactionRelease TransactionType = "release"
	// TransactionDebit takes back money for a refunded order
	TransactionDebit TransactionType = "debit"
	// TransactionPayout withdraws available money to the vendor
	TransactionPayout TransactionType = "payout"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionCredit, TransactionRelease, TransactionDebit, TransactionPayout:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// Transaction is an immutable record of a wallet balance change
type Transaction struct {
	shared.BaseEntity
	WalletID       uuid.UUID
	VendorID       uuid.UUID
	Type           TransactionType
	Amount         decimal.Decimal // always positive, direction follows Type
	AvailableAfter decimal.Decimal
	PendingAfter   decimal.Decimal
	Reference      string
	Description    string
	OrderID        *uuid.UUID
}

// Wallet holds a vendor's earnings. Money from paid orders waits in Pending
// until it is released into Available, from which payouts are drawn.
type Wallet struct {
	shared.BaseAggregateRoot
	VendorID  uuid.UUID
	Currency  valueobject.Currency
	Available decimal.Decimal
	Pending   decimal.Decimal

	// pending records not yet persisted
	transactions []Transaction
}

// NewWallet opens an empty wallet for a vendor
func NewWallet(vendorID uuid.UUID, currency valueobject.Currency) (*Wallet, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &Wallet{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VendorID:          vendorID,
		Currency:          currency,
		Available:         decimal.Zero,
		Pending:           decimal.Zero,
	}, nil
}

// Balance is available plus pending
func (w *Wallet) Balance() decimal.Decimal {
	return w.Available.Add(w.Pending)
}

// Credit adds an order payout to the pending balance
func (w *Wallet) Credit(amount decimal.Decimal, orderID uuid.UUID, reference string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	w.Pending = w.Pending.Add(amount.Round(valueobject.CentPlaces))
	w.record(TransactionCredit, amount, &orderID, reference, "Order payment received")
	w.AddDomainEvent(NewWalletEvent(EventTypeWalletCredited, w, amount))
	return nil
}

// Release moves a held order payout into the available balance
func (w *Wallet) Release(amount decimal.Decimal, orderID uuid.UUID, reference string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	amount = amount.Round(valueobject.CentPlaces)
	if w.Pending.LessThan(amount) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE",
			fmt.Sprintf("Pending balance %s is less than %s", w.Pending.StringFixed(2), amount.StringFixed(2)))
	}
	w.Pending = w.Pending.Sub(amount)
	w.Available = w.Available.Add(amount)
	w.record(TransactionRelease, amount, &orderID, reference, "Order payout released")
	w.AddDomainEvent(NewWalletEvent(EventTypeWalletReleased, w, amount))
	return nil
}

// Reverse takes back a refunded order's payout. Unreleased money comes out
// of Pending; released money comes out of Available, which may go negative
// and is then recovered from later sales.
func (w *Wallet) Reverse(amount decimal.Decimal, orderID uuid.UUID, released bool, reference string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	amount = amount.Round(valueobject.CentPlaces)
	if released {
		w.Available = w.Available.Sub(amount)
	} else {
		if w.Pending.LessThan(amount) {
			return shared.NewDomainError("INSUFFICIENT_BALANCE", "Pending balance is less than the reversed amount")
		}
		w.Pending = w.Pending.Sub(amount)
	}
	w.record(TransactionDebit, amount, &orderID, reference, "Order refunded")
	w.AddDomainEvent(NewWalletEvent(EventTypeWalletDebited, w, amount))
	return nil
}

// RequestPayout withdraws from the available balance
func (w *Wallet) RequestPayout(amount decimal.Decimal, reference string) (*Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	amount = amount.Round(valueobject.CentPlaces)
	if w.Available.LessThan(amount) {
		return nil, shared.ErrInsufficientBalance
	}
	w.Available = w.Available.Sub(amount)
	tx := w.record(TransactionPayout, amount, nil, reference, "Payout requested")
	w.AddDomainEvent(NewWalletEvent(EventTypeWalletPayout, w, amount))
	return tx, nil
}

func (w *Wallet) record(t TransactionType, amount decimal.Decimal, orderID *uuid.UUID, reference, description string) *Transaction {
	tx := Transaction{
		BaseEntity:     shared.NewBaseEntity(),
		WalletID:       w.ID,
		VendorID:       w.VendorID,
		Type:           t,
		Amount:         amount.Round(valueobject.CentPlaces),
		AvailableAfter: w.Available,
		PendingAfter:   w.Pending,
		Reference:      reference,
		Description:    description,
		OrderID:        orderID,
	}
	w.transactions = append(w.transactions, tx)
	w.Touch()
	return &w.transactions[len(w.transactions)-1]
}

// Transactions returns movements recorded since the wallet was loaded
func (w *Wallet) Transactions() []Transaction {
	return w.transactions
}

// ClearTransactions drops recorded movements once persisted
func (w *Wallet) ClearTransactions() {
	w.transactions = nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	return nil
}

// WalletEvent is raised on every balance change
type WalletEvent struct {
	shared.BaseDomainEvent
	WalletID  uuid.UUID       `json:"wallet_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Amount    decimal.Decimal `json:"amount"`
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Currency  string          `json:"currency"`
}

// NewWalletEvent creates a WalletEvent visible to the owning vendor
func NewWalletEvent(eventType string, w *Wallet, amount decimal.Decimal) *WalletEvent {
	return &WalletEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeWallet, TopicWallets, w.ID, w.VendorID),
		WalletID:        w.ID,
		VendorID:        w.VendorID,
		Amount:          amount,
		Available:       w.Available,
		Pending:         w.Pending,
		Currency:        w.Currency.String(),
	}
}
