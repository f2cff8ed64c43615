package strategy

import (
	"context"
	"testing"

	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var marketSettings = pricing.Settings{
	CommissionEnabled: true,
	CommissionRate:    dec("10"),
	VATEnabled:        true,
	VATRate:           dec("15"),
}

func TestMarketplacePricingStrategy(t *testing.T) {
	strategy := NewMarketplacePricingStrategy()

	t.Run("Name and Type", func(t *testing.T) {
		assert.Equal(t, PricingMarketplace, strategy.Name())
		assert.Equal(t, StrategyTypePricing, strategy.Type())
		assert.True(t, strategy.ChargesCommission())
	})

	t.Run("CalculatePrice with commission and vat", func(t *testing.T) {
		result, err := strategy.CalculatePrice(context.Background(), PricingContext{
			ProductID: "product-1",
			Quantity:  2,
			BasePrice: dec("100"),
			Currency:  "USD",
			Settings:  marketSettings,
		})
		require.NoError(t, err)

		assert.True(t, result.Unit.Total.Equal(dec("126.5")))
		assert.Equal(t, "200.00", result.Line.BasePrice.StringFixed(2))
		assert.Equal(t, "20.00", result.Line.Commission.StringFixed(2))
		assert.Equal(t, "33.00", result.Line.VAT.StringFixed(2))
		assert.Equal(t, "253.00", result.Line.Total.StringFixed(2))
		assert.Equal(t, []string{"commission", "vat"}, result.AppliedRules)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := strategy.CalculatePrice(context.Background(), PricingContext{
			Quantity:  0,
			BasePrice: dec("1"),
			Settings:  marketSettings,
		})
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := strategy.CalculatePrice(context.Background(), PricingContext{
			Quantity:  1,
			BasePrice: dec("-1"),
			Settings:  marketSettings,
		})
		assert.ErrorIs(t, err, pricing.ErrInvalidPrice)
	})
}

func TestFlatPricingStrategy(t *testing.T) {
	strategy := NewFlatPricingStrategy()
	assert.False(t, strategy.ChargesCommission())

	result, err := strategy.CalculatePrice(context.Background(), PricingContext{
		Quantity:  1,
		BasePrice: dec("100"),
		Settings:  marketSettings,
	})
	require.NoError(t, err)
	assert.True(t, result.Unit.Commission.IsZero())
	assert.True(t, result.Unit.Total.Equal(dec("115")))
}

func TestFlatPerVendorShippingStrategy(t *testing.T) {
	strategy := NewFlatPerVendorShippingStrategy()
	assert.Equal(t, StrategyTypeShipping, strategy.Type())

	got, err := strategy.Allocate(context.Background(), ShippingContext{
		VendorSubtotals: []decimal.Decimal{dec("20"), dec("150"), dec("99.99")},
		Fee:             dec("5.5"),
		FreeThreshold:   dec("100"),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "5.50", got[0].StringFixed(2))
	assert.True(t, got[1].IsZero())
	assert.Equal(t, "5.50", got[2].StringFixed(2))

	_, err = strategy.Allocate(context.Background(), ShippingContext{
		VendorSubtotals: []decimal.Decimal{dec("1")},
		Fee:             dec("-1"),
	})
	assert.Error(t, err)
}

func TestSplitFlatShippingStrategy(t *testing.T) {
	strategy := NewSplitFlatShippingStrategy()

	t.Run("splits by subtotal", func(t *testing.T) {
		got, err := strategy.Allocate(context.Background(), ShippingContext{
			VendorSubtotals: []decimal.Decimal{dec("10"), dec("20"), dec("30")},
			Fee:             dec("10"),
		})
		require.NoError(t, err)
		require.Len(t, got, 3)

		total := decimal.Zero
		for _, g := range got {
			total = total.Add(g)
		}
		assert.Equal(t, "10.00", total.StringFixed(2))
		assert.Equal(t, "1.67", got[0].StringFixed(2))
		assert.Equal(t, "3.33", got[1].StringFixed(2))
		assert.Equal(t, "5.00", got[2].StringFixed(2))
	})

	t.Run("waived over threshold", func(t *testing.T) {
		got, err := strategy.Allocate(context.Background(), ShippingContext{
			VendorSubtotals: []decimal.Decimal{dec("60"), dec("50")},
			Fee:             dec("10"),
			FreeThreshold:   dec("100"),
		})
		require.NoError(t, err)
		assert.True(t, got[0].IsZero())
		assert.True(t, got[1].IsZero())
	})

	t.Run("empty checkout", func(t *testing.T) {
		got, err := strategy.Allocate(context.Background(), ShippingContext{Fee: dec("10")})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
