package valueobject

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"
)

// Money pairs an amount with its currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney fails only on an empty currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency { return m.currency }

func (m Money) String() string {
	return m.amount.StringFixed(CentPlaces) + " " + string(m.currency)
}

// AllocateByRatios splits the cent-rounded amount across ratios so the parts
// add back to it exactly. Each part is first truncated to cents; the cents
// left over go one by one to the parts that lost the most, earlier parts
// winning ties. All-zero ratios split evenly.
func (m Money) AllocateByRatios(ratios []decimal.Decimal) ([]Money, error) {
	if len(ratios) == 0 {
		return nil, errors.New("at least one ratio is required")
	}
	total := decimal.Zero
	for _, r := range ratios {
		if r.IsNegative() {
			return nil, errors.New("ratios must not be negative")
		}
		total = total.Add(r)
	}
	weight := func(i int) decimal.Decimal { return ratios[i] }
	if total.IsZero() {
		weight = func(int) decimal.Decimal { return decimal.NewFromInt(1) }
		total = decimal.NewFromInt(int64(len(ratios)))
	}

	amount := m.amount.Round(CentPlaces)
	parts := make([]Money, len(ratios))
	lost := make([]decimal.Decimal, len(ratios))
	given := decimal.Zero
	for i := range ratios {
		exact := amount.Mul(weight(i)).Div(total)
		cut := exact.Truncate(CentPlaces)
		parts[i] = Money{amount: cut, currency: m.currency}
		lost[i] = exact.Sub(cut)
		given = given.Add(cut)
	}

	cent := decimal.New(1, -CentPlaces)
	left := amount.Sub(given).Div(cent).IntPart()
	if left <= 0 {
		return parts, nil
	}
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return lost[b].Cmp(lost[a]) })
	for n := int64(0); n < left; n++ {
		i := order[int(n)%len(order)]
		parts[i].amount = parts[i].amount.Add(cent)
	}
	return parts, nil
}
