package settings

import (
	"context"
	"fmt"

	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShippingStrategyGetter resolves shipping strategies by name
type ShippingStrategyGetter interface {
	GetShippingStrategy(name string) (strategy.ShippingStrategy, error)
}

// SettingsService manages the marketplace settings row and currency table
type SettingsService struct {
	repo       settings.Repository
	strategies ShippingStrategyGetter
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo settings.Repository, strategies ShippingStrategyGetter, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:       repo,
		strategies: strategies,
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher used for the change feed
func (s *SettingsService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Get returns the current settings
func (s *SettingsService) Get(ctx context.Context) (*SettingsResponse, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	resp := ToSettingsResponse(current)
	return &resp, nil
}

// Update applies an admin update and publishes settings.updated
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*SettingsResponse, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.ShippingStrategy != nil && *req.ShippingStrategy != "" && s.strategies != nil {
		if _, err := s.strategies.GetShippingStrategy(*req.ShippingStrategy); err != nil {
			return nil, shared.NewDomainError("INVALID_SHIPPING_STRATEGY", fmt.Sprintf("Unknown shipping strategy %q", *req.ShippingStrategy))
		}
	}

	if err := current.Apply(req.toDomain()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, current); err != nil {
		return nil, err
	}

	s.logger.Info("marketplace settings updated",
		zap.Bool("commission_enabled", current.CommissionEnabled),
		zap.String("commission_rate", current.CommissionRate.String()),
		zap.Bool("vat_enabled", current.VATEnabled),
		zap.String("vat_rate", current.VATRate.String()),
	)
	s.publish(ctx, current.PullDomainEvents()...)

	resp := ToSettingsResponse(current)
	return &resp, nil
}

// ListCurrencies returns the currency table
func (s *SettingsService) ListCurrencies(ctx context.Context, enabledOnly bool) ([]CurrencyResponse, error) {
	currencies, err := s.repo.ListCurrencies(ctx, enabledOnly)
	if err != nil {
		return nil, err
	}
	result := make([]CurrencyResponse, len(currencies))
	for i, c := range currencies {
		result[i] = ToCurrencyResponse(c)
	}
	return result, nil
}

// UpsertCurrency creates or replaces a currency row
func (s *SettingsService) UpsertCurrency(ctx context.Context, req UpsertCurrencyRequest) (*CurrencyResponse, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	c, err := settings.NewCurrency(req.Code, req.Symbol, req.Rate, req.Enabled)
	if err != nil {
		return nil, err
	}
	if c.Code == current.DefaultCurrency {
		if !c.Rate.Equal(decimal.NewFromInt(1)) || !c.Enabled {
			return nil, shared.NewDomainError("INVALID_RATE", "The default currency must stay enabled at rate 1")
		}
	}
	if err := s.repo.SaveCurrency(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, settings.NewCurrencyChangedEvent(c))

	resp := ToCurrencyResponse(*c)
	return &resp, nil
}

// ConvertAmount converts between two enabled currencies
func (s *SettingsService) ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResponse, error) {
	table, err := s.RateTable(ctx)
	if err != nil {
		return nil, err
	}
	fromCode, err := valueobject.ParseCurrency(from)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}
	toCode, err := valueobject.ParseCurrency(to)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}
	rate, err := table.Rate(fromCode, toCode)
	if err != nil {
		return nil, err
	}
	return &ConversionResponse{
		Amount:          amount,
		From:            fromCode.String(),
		To:              toCode.String(),
		Rate:            rate,
		ConvertedAmount: amount.Mul(rate).Round(valueobject.CentPlaces),
	}, nil
}

// RateTable builds the conversion table from the enabled currencies
func (s *SettingsService) RateTable(ctx context.Context) (settings.RateTable, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return settings.RateTable{}, err
	}
	currencies, err := s.repo.ListCurrencies(ctx, true)
	if err != nil {
		return settings.RateTable{}, err
	}
	return settings.NewRateTable(current.DefaultCurrency, currencies), nil
}

func (s *SettingsService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish settings events", zap.Error(err))
	}
}
