package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decs(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{" zar ", ZAR, false},
		{"zwg", ZWG, false},
		{"MWK", Currency("MWK"), false},
		{"RANDS", "", true},
		{"U5D", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("12.5"), ZAR)
	require.NoError(t, err)
	assert.Equal(t, ZAR, m.Currency())
	assert.Equal(t, "12.50 ZAR", m.String())

	_, err = NewMoney(decimal.NewFromInt(1), "")
	assert.Error(t, err)
}

func TestMoney_AllocateByRatios(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		ratios []string
		want   []string
	}{
		{"two vendors by subtotal", "10.00", []string{"25", "75"}, []string{"2.50", "7.50"}},
		{"three equal shipments", "10.00", []string{"1", "1", "1"}, []string{"3.34", "3.33", "3.33"}},
		{"uneven subtotals", "5.00", []string{"30", "20", "50"}, []string{"1.50", "1.00", "2.50"}},
		{"free items split evenly", "1.00", []string{"0", "0"}, []string{"0.50", "0.50"}},
		{"leftover cent to largest loss", "0.05", []string{"2", "1"}, []string{"0.03", "0.02"}},
		{"fee rounded before splitting", "9.999", []string{"1", "1"}, []string{"5.00", "5.00"}},
		{"single vendor takes it all", "7.35", []string{"40"}, []string{"7.35"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(decimal.RequireFromString(tt.amount), USD)
			require.NoError(t, err)

			parts, err := m.AllocateByRatios(decs(tt.ratios...))
			require.NoError(t, err)
			require.Len(t, parts, len(tt.want))

			sum := decimal.Zero
			for i, p := range parts {
				assert.Equal(t, tt.want[i], p.Amount().StringFixed(CentPlaces))
				assert.Equal(t, USD, p.Currency())
				sum = sum.Add(p.Amount())
			}
			assert.True(t, sum.Equal(m.Amount().Round(CentPlaces)), "parts sum to %s", sum)
		})
	}

	t.Run("input ratios untouched", func(t *testing.T) {
		ratios := decs("0", "0")
		m, _ := NewMoney(decimal.NewFromInt(1), USD)
		_, err := m.AllocateByRatios(ratios)
		require.NoError(t, err)
		assert.True(t, ratios[0].IsZero())
	})

	t.Run("errors", func(t *testing.T) {
		m, _ := NewMoney(decimal.NewFromInt(1), USD)
		_, err := m.AllocateByRatios(nil)
		assert.Error(t, err)
		_, err = m.AllocateByRatios(decs("-1", "2"))
		assert.Error(t, err)
	})
}
