package strategy

import (
	"github.com/marketplace/backend/internal/domain/shared/strategy"
)

// NewRegistryWithDefaults creates a registry with the built-in pricing and
// shipping strategies. defaultShipping selects the shipping default; an empty
// name keeps flat_per_vendor.
func NewRegistryWithDefaults(defaultShipping string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	if err := r.RegisterPricingStrategy(strategy.NewMarketplacePricingStrategy()); err != nil {
		return nil, err
	}
	if err := r.RegisterPricingStrategy(strategy.NewFlatPricingStrategy()); err != nil {
		return nil, err
	}

	if err := r.RegisterShippingStrategy(strategy.NewFlatPerVendorShippingStrategy()); err != nil {
		return nil, err
	}
	if err := r.RegisterShippingStrategy(strategy.NewSplitFlatShippingStrategy()); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypePricing, strategy.PricingMarketplace); err != nil {
		return nil, err
	}
	if defaultShipping == "" {
		defaultShipping = strategy.ShippingFlatPerVendor
	}
	if err := r.SetDefault(strategy.StrategyTypeShipping, defaultShipping); err != nil {
		return nil, err
	}

	return r, nil
}
