package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MarketplaceSettingsModel is the single-row platform settings table.
type MarketplaceSettingsModel struct {
	AggregateModel
	CommissionEnabled     bool            `gorm:"not null"`
	CommissionRate        decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	VATEnabled            bool            `gorm:"column:vat_enabled;not null;default:false"`
	VATRate               decimal.Decimal `gorm:"column:vat_rate;type:decimal(8,4);not null"`
	ShippingFee           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FreeShippingThreshold decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingStrategy      string          `gorm:"type:varchar(50)"`
	DefaultCurrency       string          `gorm:"type:varchar(3);not null"`
	PayoutHoldDays        int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketplaceSettingsModel) TableName() string {
	return "marketplace_settings"
}

// ToDomain converts the persistence model to domain MarketplaceSettings.
func (m *MarketplaceSettingsModel) ToDomain() *settings.MarketplaceSettings {
	return &settings.MarketplaceSettings{
		BaseAggregateRoot:     m.ToAggregateRoot(),
		CommissionEnabled:     m.CommissionEnabled,
		CommissionRate:        m.CommissionRate,
		VATEnabled:            m.VATEnabled,
		VATRate:               m.VATRate,
		ShippingFee:           m.ShippingFee,
		FreeShippingThreshold: m.FreeShippingThreshold,
		ShippingStrategy:      m.ShippingStrategy,
		DefaultCurrency:       valueobject.Currency(m.DefaultCurrency),
		PayoutHoldDays:        m.PayoutHoldDays,
	}
}

// MarketplaceSettingsModelFromDomain creates a persistence model from domain settings.
func MarketplaceSettingsModelFromDomain(s *settings.MarketplaceSettings) *MarketplaceSettingsModel {
	m := &MarketplaceSettingsModel{
		CommissionEnabled:     s.CommissionEnabled,
		CommissionRate:        s.CommissionRate,
		VATEnabled:            s.VATEnabled,
		VATRate:               s.VATRate,
		ShippingFee:           s.ShippingFee,
		FreeShippingThreshold: s.FreeShippingThreshold,
		ShippingStrategy:      s.ShippingStrategy,
		DefaultCurrency:       s.DefaultCurrency.String(),
		PayoutHoldDays:        s.PayoutHoldDays,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}

// CurrencyModel is a display currency keyed by its ISO code.
type CurrencyModel struct {
	Code      string          `gorm:"type:varchar(3);primary_key"`
	Symbol    string          `gorm:"type:varchar(10);not null"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Enabled   bool            `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CurrencyModel) TableName() string {
	return "currencies"
}

// ToDomain converts the persistence model to a domain Currency.
func (m *CurrencyModel) ToDomain() settings.Currency {
	return settings.Currency{
		Code:      valueobject.Currency(m.Code),
		Symbol:    m.Symbol,
		Rate:      m.Rate,
		Enabled:   m.Enabled,
		UpdatedAt: m.UpdatedAt,
	}
}

// CurrencyModelFromDomain creates a persistence model from a domain Currency.
func CurrencyModelFromDomain(c *settings.Currency) *CurrencyModel {
	return &CurrencyModel{
		Code:      c.Code.String(),
		Symbol:    c.Symbol,
		Rate:      c.Rate,
		Enabled:   c.Enabled,
		UpdatedAt: c.UpdatedAt,
	}
}
