package persistence

import (
	"context"
	"errors"

	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSettingsRepository implements settings.Repository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the saved settings, or the defaults before the first save
func (r *GormSettingsRepository) Get(ctx context.Context) (*settings.MarketplaceSettings, error) {
	var model models.MarketplaceSettingsModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", settings.SingletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, s *settings.MarketplaceSettings) error {
	s.ID = settings.SingletonID
	return r.db.WithContext(ctx).Save(models.MarketplaceSettingsModelFromDomain(s)).Error
}

// ListCurrencies lists currencies ordered by code
func (r *GormSettingsRepository) ListCurrencies(ctx context.Context, enabledOnly bool) ([]settings.Currency, error) {
	query := r.db.WithContext(ctx).Model(&models.CurrencyModel{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var rows []models.CurrencyModel
	if err := query.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]settings.Currency, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SaveCurrency creates or updates a currency row
func (r *GormSettingsRepository) SaveCurrency(ctx context.Context, c *settings.Currency) error {
	return r.db.WithContext(ctx).Save(models.CurrencyModelFromDomain(c)).Error
}

// Ensure GormSettingsRepository implements settings.Repository
var _ settings.Repository = (*GormSettingsRepository)(nil)
