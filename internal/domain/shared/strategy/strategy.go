// Package strategy holds the pluggable rules used at checkout: how a line is
// priced for a vendor and how shipping is charged per vendor shipment.
package strategy

// StrategyType groups strategies in the registry
type StrategyType string

const (
	StrategyTypePricing  StrategyType = "pricing"
	StrategyTypeShipping StrategyType = "shipping"
)

func (t StrategyType) String() string {
	return string(t)
}

// Strategy is implemented by every pricing and shipping rule. Name is what
// vendors and settings refer to, so it must stay stable once persisted.
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy is embedded by the concrete rules
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
