package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Filter narrows order listings
type Filter struct {
	shared.Filter
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     Status
}

// Totals aggregates order amounts for the admin dashboard
type Totals struct {
	Orders     int64
	GrossValue decimal.Decimal
	Commission decimal.Decimal
	VAT        decimal.Decimal
}

// Repository persists orders with their items
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]*Order, error)
	FindAll(ctx context.Context, filter Filter) ([]Order, int64, error)
	// FindStalePending returns unpaid orders created before the cutoff
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]*Order, error)
	// FindReleasable returns paid orders whose vendor payout is still held and
	// that were delivered, or paid before the cutoff
	FindReleasable(ctx context.Context, before time.Time, limit int) ([]*Order, error)
	Save(ctx context.Context, o *Order) error
	SaveWithLock(ctx context.Context, o *Order) error
	// PaidTotals sums paid-or-later orders
	PaidTotals(ctx context.Context) (Totals, error)
}

// CheckoutStore persists a checkout atomically together with its stock
// reservations
type CheckoutStore interface {
	// Place reserves stock for every item, then inserts the orders and the
	// payment transaction in one DB transaction. A short product fails the
	// whole checkout with catalog.ErrInsufficientStock.
	Place(ctx context.Context, orders []*Order, txn *payment.Transaction) error
	// Release saves cancelled orders and returns their stock in one DB transaction
	Release(ctx context.Context, orders []*Order) error
	// Settle writes a completed payment transaction together with the orders
	// it moved, in one DB transaction. Cancelled orders get their stock back.
	// The transaction row must still hold a status the new one completes
	// from, otherwise shared.ErrConcurrencyConflict.
	Settle(ctx context.Context, txn *payment.Transaction, orders []*Order) error
}
