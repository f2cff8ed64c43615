package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// Repository persists wallets together with their new transactions
type Repository interface {
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*Wallet, error)
	// Save inserts or updates the wallet, appends recorded transactions and
	// fails with shared.ErrConcurrencyConflict when the version moved
	Save(ctx context.Context, w *Wallet) error
	ListTransactions(ctx context.Context, vendorID uuid.UUID, filter shared.Filter) ([]Transaction, int64, error)
}

// CommissionFilter narrows commission listings
type CommissionFilter struct {
	shared.Filter
	VendorID *uuid.UUID
	Status   CommissionStatus
}

// CommissionRepository persists commissions
type CommissionRepository interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Commission, error)
	FindAll(ctx context.Context, filter CommissionFilter) ([]Commission, int64, error)
	Save(ctx context.Context, c *Commission) error
	Summary(ctx context.Context, vendorID *uuid.UUID) (CommissionSummary, error)
	// FindUncreditedOrderIDs lists paid orders that have no commission row yet
	FindUncreditedOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// PayoutStore moves an order's money and records the marker that makes the
// move happen once, in a single transaction
type PayoutStore interface {
	// CreditOrder inserts the commission and saves the wallet. It fails with
	// shared.ErrAlreadyExists when the order already has a commission.
	CreditOrder(ctx context.Context, w *Wallet, c *Commission) error
	// ReleaseOrder claims the order's payout, then saves the wallet and the
	// settled commission. Either may be nil. It fails with
	// shared.ErrAlreadyExists when the payout was claimed before, and with
	// shared.ErrInvalidState when the order no longer holds captured money.
	ReleaseOrder(ctx context.Context, orderID uuid.UUID, releasedAt time.Time, w *Wallet, c *Commission) error
	// ReverseOrder marks the commission reversed, then saves the wallet when
	// it is not nil. It fails with shared.ErrAlreadyExists when the commission
	// was reversed before.
	ReverseOrder(ctx context.Context, w *Wallet, c *Commission) error
}
