package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWalletRepository implements wallet.Repository using GORM
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GormWalletRepository
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// FindByVendorID finds a vendor's wallet
func (r *GormWalletRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*wallet.Wallet, error) {
	var model models.WalletModel
	if err := r.db.WithContext(ctx).First(&model, "vendor_id = ?", vendorID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// Save writes the wallet balance with a version check and appends the
// movements recorded since it was loaded, in one transaction
func (r *GormWalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveWallet(tx, w)
	})
	if err != nil {
		return err
	}
	w.ClearTransactions()
	return nil
}

// saveWallet updates the wallet row at its loaded version, creating it the
// first time, and inserts the pending movements
func saveWallet(tx *gorm.DB, w *wallet.Wallet) error {
	model := models.WalletModelFromDomain(w)
	currentVersion := w.Version
	model.Version = currentVersion + 1
	model.UpdatedAt = time.Now()

	result := tx.Model(&models.WalletModel{}).
		Where("id = ? AND version = ?", w.ID, currentVersion).
		Select("available", "pending", "currency", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.WalletModel{}).Where("id = ? OR vendor_id = ?", w.ID, w.VendorID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		model.Version = currentVersion
		if err := tx.Create(model).Error; err != nil {
			return err
		}
	}

	for _, t := range w.Transactions() {
		if err := tx.Create(models.WalletTransactionModelFromDomain(t)).Error; err != nil {
			return err
		}
	}
	w.Version = model.Version
	w.UpdatedAt = model.UpdatedAt
	return nil
}

// ListTransactions lists a vendor's wallet movements
func (r *GormWalletRepository) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter shared.Filter) ([]wallet.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WalletTransactionModel{}).Where("vendor_id = ?", vendorID)
	if t, ok := filter.Filters["type"]; ok && t != "" {
		query = query.Where("type = ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.WalletTransactionModel
	if err := paginate(query, filter, WalletTransactionSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]wallet.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Ensure GormWalletRepository implements wallet.Repository
var _ wallet.Repository = (*GormWalletRepository)(nil)
