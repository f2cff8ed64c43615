package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records marketplace checkout and payment volume
type BusinessMetrics struct {
	checkouts       *Counter
	checkoutAmount  *Histogram
	vendorOrders    *Counter
	payments        *Counter
	gatewayDuration *Histogram
}

// NewBusinessMetrics creates the instruments from meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	checkouts, err := NewCounter(meter, "marketplace_checkouts_total", "Checkouts placed", "{checkout}")
	if err != nil {
		return nil, err
	}
	vendorOrders, err := NewCounter(meter, "marketplace_vendor_orders_total", "Vendor orders created by checkouts", "{order}")
	if err != nil {
		return nil, err
	}
	checkoutAmount, err := NewHistogram(meter, HistogramOpts{
		Name:        "marketplace_checkout_amount",
		Description: "Checkout grand totals in the checkout currency",
		Unit:        "{currency}",
		Boundaries:  []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	if err != nil {
		return nil, err
	}
	payments, err := NewCounter(meter, "marketplace_payments_total", "Payment attempts by gateway and outcome", "{payment}")
	if err != nil {
		return nil, err
	}
	gatewayDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "marketplace_payment_gateway_duration_seconds",
		Description: "Latency of payment gateway calls",
		Unit:        "s",
		Boundaries:  GatewayDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &BusinessMetrics{
		checkouts:       checkouts,
		checkoutAmount:  checkoutAmount,
		vendorOrders:    vendorOrders,
		payments:        payments,
		gatewayDuration: gatewayDuration,
	}, nil
}

// RecordCheckout counts one checkout split across vendors
func (m *BusinessMetrics) RecordCheckout(ctx context.Context, vendors int, amount decimal.Decimal, currency string) {
	attrs := []attribute.KeyValue{AttrCurrency.String(currency)}
	m.checkouts.Inc(ctx, append(attrs, AttrVendorCount.Int(vendors))...)
	m.vendorOrders.Add(ctx, int64(vendors), attrs...)
	m.checkoutAmount.Record(ctx, amount.InexactFloat64(), attrs...)
}

// RecordPayment counts a gateway call and its latency
func (m *BusinessMetrics) RecordPayment(ctx context.Context, gateway, status string, latency time.Duration) {
	m.payments.Inc(ctx, AttrGateway.String(gateway), AttrPaymentStatus.String(status))
	m.gatewayDuration.RecordDuration(ctx, latency, AttrGateway.String(gateway))
}
