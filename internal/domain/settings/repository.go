package settings

import "context"

// Repository persists marketplace settings and currencies
type Repository interface {
	// Get returns the settings row, or Defaults() when none was saved yet
	Get(ctx context.Context) (*MarketplaceSettings, error)
	Save(ctx context.Context, s *MarketplaceSettings) error
	ListCurrencies(ctx context.Context, enabledOnly bool) ([]Currency, error)
	SaveCurrency(ctx context.Context, c *Currency) error
}
