package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a vendor order
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

// IsValid returns true for a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsFinal reports whether no further transitions are possible
func (s Status) IsFinal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPendingPayment:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusProcessing || target == StatusShipped || target == StatusRefunded
	case StatusProcessing:
		return target == StatusShipped || target == StatusRefunded
	case StatusShipped:
		return target == StatusDelivered
	}
	return false
}

// IsFulfilmentStatus reports whether a vendor may set this status
func (s Status) IsFulfilmentStatus() bool {
	return s == StatusProcessing || s == StatusShipped || s == StatusDelivered
}

// Item is one priced product line of a vendor order. Unit amounts are exact;
// line amounts are rounded to cents.
type Item struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	ProductName    string
	Quantity       int64
	UnitBasePrice  decimal.Decimal
	UnitCommission decimal.Decimal
	UnitVAT        decimal.Decimal
	UnitPrice      decimal.Decimal
	LineBase       decimal.Decimal
	LineCommission decimal.Decimal
	LineVAT        decimal.Decimal
	LineTotal      decimal.Decimal
	PricingRule    string
}

// NewItem creates a line from a priced breakdown
func NewItem(productID uuid.UUID, productName string, quantity int64, unit, line pricing.Breakdown, rule string) (Item, error) {
	if productID == uuid.Nil {
		return Item{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return Item{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return Item{
		ID:             uuid.New(),
		ProductID:      productID,
		ProductName:    productName,
		Quantity:       quantity,
		UnitBasePrice:  unit.BasePrice,
		UnitCommission: unit.Commission,
		UnitVAT:        unit.VAT,
		UnitPrice:      unit.Total,
		LineBase:       line.BasePrice,
		LineCommission: line.Commission,
		LineVAT:        line.VAT,
		LineTotal:      line.Total,
		PricingRule:    rule,
	}, nil
}

// Order is the part of a checkout fulfilled by a single vendor. All orders of
// one checkout share CheckoutID and are paid by one payment transaction.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber      string
	CheckoutID       uuid.UUID
	CustomerID       uuid.UUID
	VendorID         uuid.UUID
	Status           Status
	Currency         valueobject.Currency
	ExchangeRate     decimal.Decimal
	Items            []Item
	Subtotal         decimal.Decimal
	Commission       decimal.Decimal
	CommissionRate   decimal.Decimal
	VAT              decimal.Decimal
	Shipping         decimal.Decimal
	Total            decimal.Decimal
	VendorPayout     decimal.Decimal
	ShippingAddress  valueobject.Address
	ContactEmail     string
	ContactPhone     string
	PaymentGateway   string
	TrackingNumber   string
	CancelReason     string
	PaidAt           *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	PayoutReleasedAt *time.Time
}

// NewOrder creates an order for one vendor of a checkout
func NewOrder(checkoutID, customerID, vendorID uuid.UUID, currency valueobject.Currency, rate decimal.Decimal, address valueobject.Address) (*Order, error) {
	if checkoutID == uuid.Nil || customerID == uuid.Nil || vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Checkout, customer and vendor are required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CheckoutID:        checkoutID,
		CustomerID:        customerID,
		VendorID:          vendorID,
		Status:            StatusPendingPayment,
		Currency:          currency,
		ExchangeRate:      rate,
		ShippingAddress:   address,
		Items:             make([]Item, 0),
	}
	o.OrderNumber = GenerateOrderNumber(o.ID, o.CreatedAt)
	o.recalculate()
	return o, nil
}

// GenerateOrderNumber builds a human-friendly order number
func GenerateOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("MKT-%s-%s", at.Format("060102"), id.String()[:8])
}

// AddItem appends a priced line
func (o *Order) AddItem(item Item) error {
	if o.Status != StatusPendingPayment {
		return shared.NewDomainError("INVALID_STATE", "Items can only be added before payment")
	}
	for _, existing := range o.Items {
		if existing.ProductID == item.ProductID {
			return shared.NewDomainError("DUPLICATE_ITEM", "Product already in order")
		}
	}
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
	o.recalculate()
	return nil
}

// SetShipping sets the shipping charge for this vendor shipment
func (o *Order) SetShipping(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING", "Shipping cannot be negative")
	}
	o.Shipping = amount.Round(valueobject.CentPlaces)
	o.recalculate()
	return nil
}

// SetCommissionRate records the effective commission rate used
func (o *Order) SetCommissionRate(rate decimal.Decimal) {
	o.CommissionRate = rate
}

// recalculate derives order totals from its lines:
// total = subtotal + commission + vat + shipping, and the vendor is owed
// subtotal + shipping.
func (o *Order) recalculate() {
	subtotal := decimal.Zero
	commission := decimal.Zero
	vat := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineBase)
		commission = commission.Add(item.LineCommission)
		vat = vat.Add(item.LineVAT)
	}
	o.Subtotal = subtotal
	o.Commission = commission
	o.VAT = vat
	o.Total = subtotal.Add(commission).Add(vat).Add(o.Shipping)
	o.VendorPayout = subtotal.Add(o.Shipping)
	o.Touch()
}

// Place finalizes a freshly built order and raises order.created
func (o *Order) Place(gateway string) error {
	if len(o.Items) == 0 {
		return shared.NewDomainError("EMPTY_CART", "Order has no items")
	}
	o.PaymentGateway = gateway
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCreated, o))
	return nil
}

// MarkPaid records a successful payment
func (o *Order) MarkPaid() error {
	if o.Status == StatusPaid {
		return nil
	}
	if err := o.transition(StatusPaid); err != nil {
		return err
	}
	now := time.Now()
	o.PaidAt = &now
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderPaid, o))
	return nil
}

// Cancel cancels an unpaid order
func (o *Order) Cancel(reason string) error {
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCancelled, o))
	return nil
}

// Refund marks a paid order as refunded
func (o *Order) Refund(reason string) error {
	if err := o.transition(StatusRefunded); err != nil {
		return err
	}
	o.CancelReason = reason
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderRefunded, o))
	return nil
}

// UpdateFulfilment moves the order through processing, shipped and delivered
func (o *Order) UpdateFulfilment(target Status, trackingNumber string) error {
	if !target.IsFulfilmentStatus() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("%s is not a fulfilment status", target))
	}
	if err := o.transition(target); err != nil {
		return err
	}
	now := time.Now()
	switch target {
	case StatusShipped:
		o.ShippedAt = &now
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
	case StatusDelivered:
		o.DeliveredAt = &now
	}
	eventType := EventTypeOrderUpdated
	if target == StatusDelivered {
		eventType = EventTypeOrderDelivered
	}
	o.AddDomainEvent(NewOrderEvent(eventType, o))
	return nil
}

func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	o.Status = target
	o.Touch()
	return nil
}

// PayoutReleased reports whether the vendor's pending balance for this order
// was already released
func (o *Order) PayoutReleased() bool {
	return o.PayoutReleasedAt != nil
}

// MarkPayoutReleased records that the vendor payout moved to available
func (o *Order) MarkPayoutReleased() error {
	if o.PayoutReleasedAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Payout already released")
	}
	if o.Status == StatusPendingPayment || o.Status == StatusCancelled || o.Status == StatusRefunded {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot release payout for %s order", o.Status))
	}
	now := time.Now()
	o.PayoutReleasedAt = &now
	o.UpdatedAt = now
	return nil
}

// Quantities returns product quantities, used to restore stock
func (o *Order) Quantities() map[uuid.UUID]int64 {
	result := make(map[uuid.UUID]int64, len(o.Items))
	for _, item := range o.Items {
		result[item.ProductID] += item.Quantity
	}
	return result
}

// GrandTotal sums the totals of a checkout's orders
func GrandTotal(orders []*Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	return total
}
