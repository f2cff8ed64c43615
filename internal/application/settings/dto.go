package settings

import (
	"time"

	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// SettingsResponse is the marketplace settings row as the storefront reads it
type SettingsResponse struct {
	CommissionEnabled     bool            `json:"commission_enabled"`
	CommissionRate        decimal.Decimal `json:"commission_rate"`
	VATEnabled            bool            `json:"vat_enabled"`
	VATRate               decimal.Decimal `json:"vat_rate"`
	ShippingFee           decimal.Decimal `json:"shipping_fee"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	ShippingStrategy      string          `json:"shipping_strategy"`
	DefaultCurrency       string          `json:"default_currency"`
	PayoutHoldDays        int             `json:"payout_hold_days"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// UpdateSettingsRequest is a partial admin update
type UpdateSettingsRequest struct {
	CommissionEnabled     *bool            `json:"commission_enabled"`
	CommissionRate        *decimal.Decimal `json:"commission_rate"`
	VATEnabled            *bool            `json:"vat_enabled"`
	VATRate               *decimal.Decimal `json:"vat_rate"`
	ShippingFee           *decimal.Decimal `json:"shipping_fee"`
	FreeShippingThreshold *decimal.Decimal `json:"free_shipping_threshold"`
	ShippingStrategy      *string          `json:"shipping_strategy" binding:"omitempty,max=50"`
	DefaultCurrency       *string          `json:"default_currency" binding:"omitempty,iso4217"`
	PayoutHoldDays        *int             `json:"payout_hold_days" binding:"omitempty,min=0,max=90"`
}

func (r UpdateSettingsRequest) toDomain() settings.Update {
	return settings.Update{
		CommissionEnabled:     r.CommissionEnabled,
		CommissionRate:        r.CommissionRate,
		VATEnabled:            r.VATEnabled,
		VATRate:               r.VATRate,
		ShippingFee:           r.ShippingFee,
		FreeShippingThreshold: r.FreeShippingThreshold,
		ShippingStrategy:      r.ShippingStrategy,
		DefaultCurrency:       r.DefaultCurrency,
		PayoutHoldDays:        r.PayoutHoldDays,
	}
}

// CurrencyResponse is one display currency
type CurrencyResponse struct {
	Code      string          `json:"code"`
	Symbol    string          `json:"symbol"`
	Rate      decimal.Decimal `json:"rate"`
	Enabled   bool            `json:"enabled"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UpsertCurrencyRequest creates or replaces a currency row
type UpsertCurrencyRequest struct {
	Code    string          `json:"code" binding:"required,iso4217"`
	Symbol  string          `json:"symbol" binding:"max=8"`
	Rate    decimal.Decimal `json:"rate" binding:"required"`
	Enabled bool            `json:"enabled"`
}

// ConversionResponse is the result of ConvertAmount
type ConversionResponse struct {
	Amount          decimal.Decimal `json:"amount"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Rate            decimal.Decimal `json:"rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
}

// ToSettingsResponse converts the domain settings
func ToSettingsResponse(s *settings.MarketplaceSettings) SettingsResponse {
	return SettingsResponse{
		CommissionEnabled:     s.CommissionEnabled,
		CommissionRate:        s.CommissionRate,
		VATEnabled:            s.VATEnabled,
		VATRate:               s.VATRate,
		ShippingFee:           s.ShippingFee,
		FreeShippingThreshold: s.FreeShippingThreshold,
		ShippingStrategy:      s.ShippingStrategy,
		DefaultCurrency:       s.DefaultCurrency.String(),
		PayoutHoldDays:        s.PayoutHoldDays,
		UpdatedAt:             s.UpdatedAt,
	}
}

// ToCurrencyResponse converts a currency row
func ToCurrencyResponse(c settings.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:      c.Code.String(),
		Symbol:    c.Symbol,
		Rate:      c.Rate,
		Enabled:   c.Enabled,
		UpdatedAt: c.UpdatedAt,
	}
}
