package payment

import (
	"context"

	"github.com/google/uuid"
)

// TransactionRepository persists payment transactions
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindByGatewayReference(ctx context.Context, gateway GatewayType, reference string) (*Transaction, error)
	FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]Transaction, error)
	// FindPending returns pending transactions that have something to poll
	FindPending(ctx context.Context, limit int) ([]Transaction, error)
	Save(ctx context.Context, t *Transaction) error
}
