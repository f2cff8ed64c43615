package settings

import (
	"testing"

	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketplaceSettings_Apply(t *testing.T) {
	t.Run("applies partial update and raises event", func(t *testing.T) {
		s := Defaults()
		rate := decimal.NewFromInt(12)
		vat := true
		require.NoError(t, s.Apply(Update{CommissionRate: &rate, VATEnabled: &vat}))

		assert.True(t, s.CommissionRate.Equal(rate))
		assert.True(t, s.VATEnabled)
		require.Len(t, s.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeSettingsUpdate, s.GetDomainEvents()[0].EventType())
		assert.Equal(t, TopicSettings, s.GetDomainEvents()[0].Topic())
	})

	t.Run("rejects out of range rate and keeps old values", func(t *testing.T) {
		s := Defaults()
		bad := decimal.NewFromInt(101)
		err := s.Apply(Update{VATRate: &bad})
		assert.Error(t, err)
		assert.True(t, s.VATRate.Equal(decimal.NewFromInt(15)))
		assert.Empty(t, s.GetDomainEvents())
	})

	t.Run("rejects negative shipping", func(t *testing.T) {
		s := Defaults()
		fee := decimal.NewFromInt(-1)
		assert.Error(t, s.Apply(Update{ShippingFee: &fee}))
	})

	t.Run("normalizes currency", func(t *testing.T) {
		s := Defaults()
		code := "zar"
		require.NoError(t, s.Apply(Update{DefaultCurrency: &code}))
		assert.Equal(t, valueobject.ZAR, s.DefaultCurrency)
	})
}

func TestRateTable(t *testing.T) {
	zar, err := NewCurrency("ZAR", "R", decimal.RequireFromString("18.5"), true)
	require.NoError(t, err)
	zwg, err := NewCurrency("ZWG", "", decimal.RequireFromString("26.8"), true)
	require.NoError(t, err)
	assert.Equal(t, "ZWG", zwg.Symbol)
	gbp, err := NewCurrency("GBP", "£", decimal.RequireFromString("0.79"), false)
	require.NoError(t, err)

	table := NewRateTable(valueobject.USD, []Currency{*zar, *zwg, *gbp})

	got, err := table.Convert(decimal.NewFromInt(10), valueobject.USD, valueobject.ZAR)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(185)))

	got, err = table.Convert(decimal.NewFromInt(185), valueobject.ZAR, valueobject.USD)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.StringFixed(2))

	_, err = table.Convert(decimal.NewFromInt(1), valueobject.USD, valueobject.GBP)
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = NewCurrency("ZAR", "R", decimal.Zero, true)
	assert.Error(t, err)
}
