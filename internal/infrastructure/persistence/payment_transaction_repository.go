package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentTransactionRepository implements payment.TransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID
func (r *GormPaymentTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByGatewayReference finds a transaction by the gateway's reference,
// falling back to our own reference which some gateways echo back instead
func (r *GormPaymentTransactionRepository) FindByGatewayReference(ctx context.Context, gateway payment.GatewayType, reference string) (*payment.Transaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("gateway = ? AND (gateway_reference = ? OR reference = ?)", gateway, reference, reference).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCheckoutID lists payment attempts for a checkout, newest first
func (r *GormPaymentTransactionRepository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]payment.Transaction, error) {
	var rows []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPaymentTransactions(rows), nil
}

// FindPending returns pending transactions that have a gateway reference or
// poll URL to check
func (r *GormPaymentTransactionRepository) FindPending(ctx context.Context, limit int) ([]payment.Transaction, error) {
	var rows []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", payment.TransactionPending).
		Where("(gateway_reference <> '' AND gateway_reference IS NOT NULL) OR (poll_url <> '' AND poll_url IS NOT NULL)").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toPaymentTransactions(rows), nil
}

// Save creates or updates a transaction
func (r *GormPaymentTransactionRepository) Save(ctx context.Context, t *payment.Transaction) error {
	return r.db.WithContext(ctx).Save(models.PaymentTransactionModelFromDomain(t)).Error
}

func toPaymentTransactions(rows []models.PaymentTransactionModel) []payment.Transaction {
	out := make([]payment.Transaction, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormPaymentTransactionRepository implements payment.TransactionRepository
var _ payment.TransactionRepository = (*GormPaymentTransactionRepository)(nil)
