package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations
type StrategyRegistry struct {
	mu                 sync.RWMutex
	pricingStrategies  map[string]strategy.PricingStrategy
	shippingStrategies map[string]strategy.ShippingStrategy
	defaults           map[strategy.StrategyType]string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		pricingStrategies:  make(map[string]strategy.PricingStrategy),
		shippingStrategies: make(map[string]strategy.ShippingStrategy),
		defaults:           make(map[strategy.StrategyType]string),
	}
}

// RegisterPricingStrategy registers a pricing strategy
func (r *StrategyRegistry) RegisterPricingStrategy(s strategy.PricingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.pricingStrategies[name]; exists {
		return fmt.Errorf("%w: pricing strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.pricingStrategies[name] = s
	return nil
}

// GetPricingStrategy returns a pricing strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetPricingStrategy(name string) (strategy.PricingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypePricing]
		if name == "" {
			return nil, fmt.Errorf("%w: no default pricing strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.pricingStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: pricing strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListPricingStrategies returns all registered pricing strategy names
func (r *StrategyRegistry) ListPricingStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.pricingStrategies)
}

// RegisterShippingStrategy registers a shipping strategy
func (r *StrategyRegistry) RegisterShippingStrategy(s strategy.ShippingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.shippingStrategies[name]; exists {
		return fmt.Errorf("%w: shipping strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.shippingStrategies[name] = s
	return nil
}

// GetShippingStrategy returns a shipping strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetShippingStrategy(name string) (strategy.ShippingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeShipping]
		if name == "" {
			return nil, fmt.Errorf("%w: no default shipping strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.shippingStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: shipping strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListShippingStrategies returns all registered shipping strategy names
func (r *StrategyRegistry) ListShippingStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.shippingStrategies)
}

// SetDefault sets the default strategy for a type. The strategy must be registered.
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var exists bool
	switch strategyType {
	case strategy.StrategyTypePricing:
		_, exists = r.pricingStrategies[name]
	case strategy.StrategyTypeShipping:
		_, exists = r.shippingStrategies[name]
	default:
		return fmt.Errorf("%w: unknown strategy type '%s'", shared.ErrInvalidInput, strategyType)
	}
	if !exists {
		return fmt.Errorf("%w: %s strategy '%s' not found", shared.ErrNotFound, strategyType, name)
	}
	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
