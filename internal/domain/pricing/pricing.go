// Package pricing holds the marketplace price formula.
//
// A customer-facing price is built from the vendor's base price in two steps:
//
//	commission          = commissionEnabled ? base * commissionRate / 100 : 0
//	priceWithCommission = base + commission
//	vat                 = vatEnabled ? priceWithCommission * vatRate / 100 : 0
//	total               = priceWithCommission + vat
//
// Values are kept exact; rounding to cents happens where amounts are
// persisted or shown.
package pricing

import (
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// ErrInvalidPrice is returned for a negative base price
	ErrInvalidPrice = shared.NewDomainError("INVALID_PRICE", "Base price must not be negative")
	// ErrInvalidRate is returned for a rate outside 0..100
	ErrInvalidRate = shared.NewDomainError("INVALID_RATE", "Rates must be between 0 and 100")
)

// Settings are the marketplace-wide toggles and rates the formula reads
type Settings struct {
	CommissionEnabled bool            `json:"commission_enabled"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	VATEnabled        bool            `json:"vat_enabled"`
	VATRate           decimal.Decimal `json:"vat_rate"`
}

// Validate checks both rates lie in 0..100
func (s Settings) Validate() error {
	for _, r := range []decimal.Decimal{s.CommissionRate, s.VATRate} {
		if r.IsNegative() || r.GreaterThan(hundred) {
			return ErrInvalidRate
		}
	}
	return nil
}

// WithoutCommission returns a copy with commission switched off
func (s Settings) WithoutCommission() Settings {
	s.CommissionEnabled = false
	return s
}

// EffectiveCommissionRate is the rate actually applied
func (s Settings) EffectiveCommissionRate() decimal.Decimal {
	if !s.CommissionEnabled {
		return decimal.Zero
	}
	return s.CommissionRate
}

// EffectiveVATRate is the rate actually applied
func (s Settings) EffectiveVATRate() decimal.Decimal {
	if !s.VATEnabled {
		return decimal.Zero
	}
	return s.VATRate
}

// Breakdown is the result of pricing one unit
type Breakdown struct {
	BasePrice           decimal.Decimal `json:"base_price"`
	Commission          decimal.Decimal `json:"commission"`
	PriceWithCommission decimal.Decimal `json:"price_with_commission"`
	VAT                 decimal.Decimal `json:"vat"`
	Total               decimal.Decimal `json:"total"`
}

// Calculate applies the price formula. It is pure: the same inputs always
// produce the same breakdown.
func Calculate(basePrice decimal.Decimal, s Settings) Breakdown {
	commission := decimal.Zero
	if s.CommissionEnabled {
		commission = basePrice.Mul(s.CommissionRate).Div(hundred)
	}
	priceWithCommission := basePrice.Add(commission)

	vat := decimal.Zero
	if s.VATEnabled {
		vat = priceWithCommission.Mul(s.VATRate).Div(hundred)
	}

	return Breakdown{
		BasePrice:           basePrice,
		Commission:          commission,
		PriceWithCommission: priceWithCommission,
		VAT:                 vat,
		Total:               priceWithCommission.Add(vat),
	}
}

// ValidateBasePrice rejects negative prices
func ValidateBasePrice(basePrice decimal.Decimal) error {
	if basePrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Scale multiplies every component by quantity and rounds each to cents.
// Total is recomputed from the rounded parts so the line always adds up.
func (b Breakdown) Scale(quantity int64) Breakdown {
	q := decimal.NewFromInt(quantity)
	base := b.BasePrice.Mul(q).Round(2)
	commission := b.Commission.Mul(q).Round(2)
	vat := b.VAT.Mul(q).Round(2)
	return Breakdown{
		BasePrice:           base,
		Commission:          commission,
		PriceWithCommission: base.Add(commission),
		VAT:                 vat,
		Total:               base.Add(commission).Add(vat),
	}
}

// Round rounds every component to cents, recomputing the sums
func (b Breakdown) Round() Breakdown {
	return b.Scale(1)
}

// Add sums two breakdowns component-wise
func (b Breakdown) Add(other Breakdown) Breakdown {
	return Breakdown{
		BasePrice:           b.BasePrice.Add(other.BasePrice),
		Commission:          b.Commission.Add(other.Commission),
		PriceWithCommission: b.PriceWithCommission.Add(other.PriceWithCommission),
		VAT:                 b.VAT.Add(other.VAT),
		Total:               b.Total.Add(other.Total),
	}
}
