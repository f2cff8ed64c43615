package payment

import (
	"sort"
	"sync"

	"github.com/marketplace/backend/internal/domain/payment"
)

// GatewayRegistry holds the configured gateway adapters
type GatewayRegistry struct {
	mu       sync.RWMutex
	gateways map[payment.GatewayType]payment.Gateway
	enabled  map[payment.GatewayType]bool
}

// NewGatewayRegistry creates an empty registry
func NewGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{
		gateways: make(map[payment.GatewayType]payment.Gateway),
		enabled:  make(map[payment.GatewayType]bool),
	}
}

// Register adds a gateway. A disabled gateway still answers callbacks for
// payments started before it was switched off.
func (r *GatewayRegistry) Register(gw payment.Gateway, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gw.GatewayType()] = gw
	r.enabled[gw.GatewayType()] = enabled
}

// GetGateway returns the gateway for the specified type
func (r *GatewayRegistry) GetGateway(gatewayType payment.GatewayType) (payment.Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[gatewayType]
	if !ok {
		return nil, payment.ErrGatewayNotConfigured
	}
	return gw, nil
}

// ListGateways returns the enabled gateway types in a stable order
func (r *GatewayRegistry) ListGateways() []payment.GatewayType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]payment.GatewayType, 0, len(r.enabled))
	for t, on := range r.enabled {
		if on {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsEnabled returns true if the gateway type is enabled
func (r *GatewayRegistry) IsEnabled(gatewayType payment.GatewayType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[gatewayType]
}

// Ensure GatewayRegistry implements payment.GatewayRegistry
var _ payment.GatewayRegistry = (*GatewayRegistry)(nil)
