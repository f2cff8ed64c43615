package settings

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SingletonID identifies the single marketplace settings row
var SingletonID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const (
	AggregateTypeSettings   = "MarketplaceSettings"
	EventTypeSettingsUpdate = "settings.updated"
	EventTypeCurrencyUpdate = "currency.updated"
	TopicSettings           = "marketplace_settings"
	TopicCurrencies         = "currencies"
)

// MarketplaceSettings holds the platform-wide switches the storefront reads
type MarketplaceSettings struct {
	shared.BaseAggregateRoot
	CommissionEnabled     bool
	CommissionRate        decimal.Decimal
	VATEnabled            bool
	VATRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingStrategy      string
	DefaultCurrency       valueobject.Currency
	PayoutHoldDays        int
}

// Defaults returns the settings used before an admin saves any
func Defaults() *MarketplaceSettings {
	s := &MarketplaceSettings{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CommissionEnabled: true,
		CommissionRate:    decimal.NewFromInt(10),
		VATEnabled:        false,
		VATRate:           decimal.NewFromInt(15),
		ShippingFee:       decimal.NewFromInt(5),
		DefaultCurrency:   valueobject.DefaultCurrency,
		PayoutHoldDays:    7,
	}
	s.ID = SingletonID
	return s
}

// Pricing returns the pricing inputs
func (s *MarketplaceSettings) Pricing() pricing.Settings {
	return pricing.Settings{
		CommissionEnabled: s.CommissionEnabled,
		CommissionRate:    s.CommissionRate,
		VATEnabled:        s.VATEnabled,
		VATRate:           s.VATRate,
	}
}

// Update is the admin-editable subset of settings. Nil fields are left as-is.
type Update struct {
	CommissionEnabled     *bool
	CommissionRate        *decimal.Decimal
	VATEnabled            *bool
	VATRate               *decimal.Decimal
	ShippingFee           *decimal.Decimal
	FreeShippingThreshold *decimal.Decimal
	ShippingStrategy      *string
	DefaultCurrency       *string
	PayoutHoldDays        *int
}

// Apply validates and applies an update, raising settings.updated
func (s *MarketplaceSettings) Apply(u Update) error {
	next := *s
	if u.CommissionEnabled != nil {
		next.CommissionEnabled = *u.CommissionEnabled
	}
	if u.CommissionRate != nil {
		next.CommissionRate = *u.CommissionRate
	}
	if u.VATEnabled != nil {
		next.VATEnabled = *u.VATEnabled
	}
	if u.VATRate != nil {
		next.VATRate = *u.VATRate
	}
	if u.ShippingFee != nil {
		next.ShippingFee = *u.ShippingFee
	}
	if u.FreeShippingThreshold != nil {
		next.FreeShippingThreshold = *u.FreeShippingThreshold
	}
	if u.ShippingStrategy != nil {
		next.ShippingStrategy = strings.TrimSpace(*u.ShippingStrategy)
	}
	if u.DefaultCurrency != nil {
		c, err := valueobject.ParseCurrency(*u.DefaultCurrency)
		if err != nil {
			return shared.NewDomainError("INVALID_CURRENCY", err.Error())
		}
		next.DefaultCurrency = c
	}
	if u.PayoutHoldDays != nil {
		next.PayoutHoldDays = *u.PayoutHoldDays
	}

	if err := next.Validate(); err != nil {
		return err
	}

	s.CommissionEnabled = next.CommissionEnabled
	s.CommissionRate = next.CommissionRate
	s.VATEnabled = next.VATEnabled
	s.VATRate = next.VATRate
	s.ShippingFee = next.ShippingFee
	s.FreeShippingThreshold = next.FreeShippingThreshold
	s.ShippingStrategy = next.ShippingStrategy
	s.DefaultCurrency = next.DefaultCurrency
	s.PayoutHoldDays = next.PayoutHoldDays
	s.Touch()
	s.AddDomainEvent(&UpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettingsUpdate, AggregateTypeSettings, TopicSettings, s.ID),
		Pricing:         s.Pricing(),
	})
	return nil
}

// Validate checks all settings are within range
func (s *MarketplaceSettings) Validate() error {
	if err := s.Pricing().Validate(); err != nil {
		return err
	}
	if s.ShippingFee.IsNegative() || s.FreeShippingThreshold.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING", "Shipping amounts must not be negative")
	}
	if s.PayoutHoldDays < 0 || s.PayoutHoldDays > 90 {
		return shared.NewDomainError("INVALID_HOLD_PERIOD", "Payout hold must be between 0 and 90 days")
	}
	if s.DefaultCurrency == "" {
		return shared.NewDomainError("INVALID_CURRENCY", "Default currency is required")
	}
	return nil
}

// UpdatedEvent is raised when an admin saves marketplace settings
type UpdatedEvent struct {
	shared.BaseDomainEvent
	Pricing pricing.Settings `json:"pricing"`
}

// Currency is a storefront display currency with its exchange rate relative
// to the marketplace default currency.
type Currency struct {
	Code      valueobject.Currency
	Symbol    string
	Rate      decimal.Decimal
	Enabled   bool
	UpdatedAt time.Time
}

// NewCurrency validates a currency definition
func NewCurrency(code, symbol string, rate decimal.Decimal, enabled bool) (*Currency, error) {
	c, err := valueobject.ParseCurrency(code)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}
	if !rate.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RATE", "Exchange rate must be positive")
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = c.String()
	}
	return &Currency{Code: c, Symbol: symbol, Rate: rate, Enabled: enabled, UpdatedAt: time.Now()}, nil
}

// CurrencyChangedEvent is raised when a currency row is saved
type CurrencyChangedEvent struct {
	shared.BaseDomainEvent
	Code valueobject.Currency `json:"code"`
	Rate decimal.Decimal      `json:"rate"`
}

// NewCurrencyChangedEvent creates a CurrencyChangedEvent
func NewCurrencyChangedEvent(c *Currency) *CurrencyChangedEvent {
	return &CurrencyChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCurrencyUpdate, "Currency", TopicCurrencies, uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.Code))),
		Code:            c.Code,
		Rate:            c.Rate,
	}
}

// RateTable converts between enabled currencies through the default currency
type RateTable struct {
	Base  valueobject.Currency
	Rates map[valueobject.Currency]decimal.Decimal
}

// NewRateTable builds a rate table from currency rows
func NewRateTable(base valueobject.Currency, currencies []Currency) RateTable {
	rates := map[valueobject.Currency]decimal.Decimal{base: decimal.NewFromInt(1)}
	for _, c := range currencies {
		if c.Enabled && c.Rate.IsPositive() {
			rates[c.Code] = c.Rate
		}
	}
	rates[base] = decimal.NewFromInt(1)
	return RateTable{Base: base, Rates: rates}
}

// ErrUnsupportedCurrency is returned for a currency missing from the table
var ErrUnsupportedCurrency = shared.NewDomainError("UNSUPPORTED_CURRENCY", "Currency is not supported")

// Rate returns how many `to` units one `from` unit buys
func (t RateTable) Rate(from, to valueobject.Currency) (decimal.Decimal, error) {
	fromRate, ok := t.Rates[from]
	if !ok {
		return decimal.Zero, ErrUnsupportedCurrency
	}
	toRate, ok := t.Rates[to]
	if !ok {
		return decimal.Zero, ErrUnsupportedCurrency
	}
	return toRate.Div(fromRate), nil
}

// Convert converts an amount between two currencies
func (t RateTable) Convert(amount decimal.Decimal, from, to valueobject.Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := t.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
