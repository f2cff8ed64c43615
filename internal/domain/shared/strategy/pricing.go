package strategy

import (
	"context"

	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// PricingContext provides context for pricing one product line
type PricingContext struct {
	ProductID string
	VendorID  string
	Quantity  int64
	BasePrice decimal.Decimal
	Currency  string
	Settings  pricing.Settings
}

// PricingResult contains the unit and line breakdowns
type PricingResult struct {
	Unit         pricing.Breakdown
	Line         pricing.Breakdown
	Currency     string
	AppliedRules []string
}

// PricingStrategy defines the interface for pricing calculation
type PricingStrategy interface {
	Strategy
	// CalculatePrice prices one line for the given context
	CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error)
	// ChargesCommission reports whether the platform keeps a commission
	ChargesCommission() bool
}

// ShippingContext describes the vendor shipments of one checkout
type ShippingContext struct {
	// VendorSubtotals holds each shipment's merchandise subtotal, in order
	VendorSubtotals []decimal.Decimal
	// Fee is the configured shipping fee
	Fee decimal.Decimal
	// FreeThreshold waives the fee for shipments at or above it; zero disables
	FreeThreshold decimal.Decimal
	Currency      string
}

// ShippingStrategy decides what each vendor shipment is charged for delivery
type ShippingStrategy interface {
	Strategy
	// Allocate returns one shipping amount per entry in VendorSubtotals
	Allocate(ctx context.Context, shippingCtx ShippingContext) ([]decimal.Decimal, error)
}
