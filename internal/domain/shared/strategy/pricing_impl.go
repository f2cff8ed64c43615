package strategy

import (
	"context"
	"errors"

	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Pricing strategy names
const (
	PricingMarketplace = "marketplace"
	PricingFlat        = "flat"
)

// Shipping strategy names
const (
	ShippingFlatPerVendor = "flat_per_vendor"
	ShippingSplitFlat     = "split_flat"
)

var errInvalidQuantity = errors.New("quantity must be positive")

// MarketplacePricingStrategy applies commission and VAT per the settings
type MarketplacePricingStrategy struct {
	BaseStrategy
}

// NewMarketplacePricingStrategy creates the default pricing strategy
func NewMarketplacePricingStrategy() *MarketplacePricingStrategy {
	return &MarketplacePricingStrategy{
		BaseStrategy: NewBaseStrategy(
			PricingMarketplace,
			StrategyTypePricing,
			"Base price plus platform commission, then VAT on the commissioned price",
		),
	}
}

// CalculatePrice prices a line with commission and VAT
func (s *MarketplacePricingStrategy) CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error) {
	return price(pricingCtx, pricingCtx.Settings, []string{"commission", "vat"})
}

// ChargesCommission returns true
func (s *MarketplacePricingStrategy) ChargesCommission() bool {
	return true
}

// FlatPricingStrategy is used for commission-exempt vendors. VAT still applies
// when enabled.
type FlatPricingStrategy struct {
	BaseStrategy
}

// NewFlatPricingStrategy creates the commission-free pricing strategy
func NewFlatPricingStrategy() *FlatPricingStrategy {
	return &FlatPricingStrategy{
		BaseStrategy: NewBaseStrategy(
			PricingFlat,
			StrategyTypePricing,
			"Base price without platform commission",
		),
	}
}

// CalculatePrice prices a line without commission
func (s *FlatPricingStrategy) CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error) {
	return price(pricingCtx, pricingCtx.Settings.WithoutCommission(), []string{"vat"})
}

// ChargesCommission returns false
func (s *FlatPricingStrategy) ChargesCommission() bool {
	return false
}

func price(pricingCtx PricingContext, settings pricing.Settings, rules []string) (PricingResult, error) {
	if pricingCtx.Quantity <= 0 {
		return PricingResult{}, errInvalidQuantity
	}
	if err := pricing.ValidateBasePrice(pricingCtx.BasePrice); err != nil {
		return PricingResult{}, err
	}
	if err := settings.Validate(); err != nil {
		return PricingResult{}, err
	}
	unit := pricing.Calculate(pricingCtx.BasePrice, settings)
	return PricingResult{
		Unit:         unit,
		Line:         unit.Scale(pricingCtx.Quantity),
		Currency:     pricingCtx.Currency,
		AppliedRules: rules,
	}, nil
}

// FlatPerVendorShippingStrategy charges the fee once per vendor shipment
type FlatPerVendorShippingStrategy struct {
	BaseStrategy
}

// NewFlatPerVendorShippingStrategy creates the default shipping strategy
func NewFlatPerVendorShippingStrategy() *FlatPerVendorShippingStrategy {
	return &FlatPerVendorShippingStrategy{
		BaseStrategy: NewBaseStrategy(
			ShippingFlatPerVendor,
			StrategyTypeShipping,
			"Each vendor shipment pays the flat fee unless it reaches the free-shipping threshold",
		),
	}
}

// Allocate charges the fee per shipment, waived at the threshold
func (s *FlatPerVendorShippingStrategy) Allocate(ctx context.Context, shippingCtx ShippingContext) ([]decimal.Decimal, error) {
	if shippingCtx.Fee.IsNegative() {
		return nil, errors.New("shipping fee must not be negative")
	}
	result := make([]decimal.Decimal, len(shippingCtx.VendorSubtotals))
	for i, subtotal := range shippingCtx.VendorSubtotals {
		if qualifiesForFreeShipping(subtotal, shippingCtx.FreeThreshold) {
			result[i] = decimal.Zero
			continue
		}
		result[i] = shippingCtx.Fee.Round(valueobject.CentPlaces)
	}
	return result, nil
}

// SplitFlatShippingStrategy charges the fee once per checkout and spreads it
// across vendor shipments proportionally to their subtotals.
type SplitFlatShippingStrategy struct {
	BaseStrategy
}

// NewSplitFlatShippingStrategy creates the split shipping strategy
func NewSplitFlatShippingStrategy() *SplitFlatShippingStrategy {
	return &SplitFlatShippingStrategy{
		BaseStrategy: NewBaseStrategy(
			ShippingSplitFlat,
			StrategyTypeShipping,
			"One fee per checkout, allocated across vendors by subtotal",
		),
	}
}

// Allocate spreads a single fee across shipments; parts sum to the fee
func (s *SplitFlatShippingStrategy) Allocate(ctx context.Context, shippingCtx ShippingContext) ([]decimal.Decimal, error) {
	if len(shippingCtx.VendorSubtotals) == 0 {
		return nil, nil
	}
	if shippingCtx.Fee.IsNegative() {
		return nil, errors.New("shipping fee must not be negative")
	}
	total := decimal.Zero
	for _, subtotal := range shippingCtx.VendorSubtotals {
		total = total.Add(subtotal)
	}
	fee := shippingCtx.Fee
	if qualifiesForFreeShipping(total, shippingCtx.FreeThreshold) {
		fee = decimal.Zero
	}
	return AllocateShipping(fee, shippingCtx.VendorSubtotals)
}

// AllocateShipping splits amount proportionally to weights using cent-exact
// allocation; the parts always sum to amount rounded to cents.
func AllocateShipping(amount decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	m, err := valueobject.NewMoney(amount, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	parts, err := m.AllocateByRatios(weights)
	if err != nil {
		return nil, err
	}
	result := make([]decimal.Decimal, len(parts))
	for i, p := range parts {
		result[i] = p.Amount()
	}
	return result, nil
}

func qualifiesForFreeShipping(subtotal, threshold decimal.Decimal) bool {
	return threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold)
}
