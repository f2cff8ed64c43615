package valueobject

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code. Any well-formed code is accepted; the
// constants are the ones the storefront ships with.
type Currency string

const (
	USD Currency = "USD"
	ZAR Currency = "ZAR"
	ZWG Currency = "ZWG" // Zimbabwe Gold
	BWP Currency = "BWP"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency prices products and settles wallets unless settings say otherwise
const DefaultCurrency = USD

// CentPlaces is the settlement precision for every currency we handle
const CentPlaces int32 = 2

// ParseCurrency upper-cases and trims code, then checks it is three letters
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 || strings.IndexFunc(c, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		return "", fmt.Errorf("invalid currency code: %q", code)
	}
	return Currency(c), nil
}

func (c Currency) String() string {
	return string(c)
}
