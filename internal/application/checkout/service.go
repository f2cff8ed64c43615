package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	identityapp "github.com/marketplace/backend/internal/application/identity"
	paymentapp "github.com/marketplace/backend/internal/application/payment"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StrategyGetter resolves pricing and shipping strategies by name
type StrategyGetter interface {
	GetPricingStrategy(name string) (strategy.PricingStrategy, error)
	GetShippingStrategy(name string) (strategy.ShippingStrategy, error)
}

// AccountResolver finds or creates the buyer profile
type AccountResolver interface {
	EnsureCheckoutAccount(ctx context.Context, input identityapp.CheckoutAccountInput) (*identityapp.CheckoutAccount, error)
}

// PaymentStarter hands a persisted checkout to its gateway and closes the
// attempts of orders that will not be paid
type PaymentStarter interface {
	Supports(gateway payment.GatewayType) bool
	Start(ctx context.Context, in paymentapp.StartInput) (*paymentapp.PaymentResult, error)
	VoidPending(ctx context.Context, orders []*order.Order, reason string) (int, error)
}

// InvoiceRenderer renders a vendor order as a PDF
type InvoiceRenderer interface {
	RenderInvoice(ctx context.Context, o *order.Order, v *vendor.VendorProfile) ([]byte, error)
}

// Metrics records checkout volume
type Metrics interface {
	RecordCheckout(ctx context.Context, vendors int, amount decimal.Decimal, currency string)
}

// CheckoutService prices carts, splits them into vendor orders and manages
// the order lifecycle
type CheckoutService struct {
	productRepo  catalog.ProductRepository
	vendorRepo   vendor.Repository
	orderRepo    order.Repository
	settingsRepo settings.Repository
	store        order.CheckoutStore
	strategies   StrategyGetter
	accounts     AccountResolver
	payments     PaymentStarter
	invoices     InvoiceRenderer
	publisher    shared.EventPublisher
	metrics      Metrics
	logger       *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	productRepo catalog.ProductRepository,
	vendorRepo vendor.Repository,
	orderRepo order.Repository,
	settingsRepo settings.Repository,
	store order.CheckoutStore,
	strategies StrategyGetter,
	accounts AccountResolver,
	payments PaymentStarter,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		productRepo:  productRepo,
		vendorRepo:   vendorRepo,
		orderRepo:    orderRepo,
		settingsRepo: settingsRepo,
		store:        store,
		strategies:   strategies,
		accounts:     accounts,
		payments:     payments,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetInvoiceRenderer enables GetInvoice
func (s *CheckoutService) SetInvoiceRenderer(r InvoiceRenderer) {
	s.invoices = r
}

// SetMetrics sets the metrics recorder
func (s *CheckoutService) SetMetrics(m Metrics) {
	s.metrics = m
}

// pricedLine is a cart line with the vendor it ships from
type pricedLine struct {
	vendor *vendor.VendorProfile
	item   order.Item
}

// Checkout validates the cart, places one order per vendor and starts the
// payment for the whole group
func (s *CheckoutService) Checkout(ctx context.Context, callerID *uuid.UUID, req CheckoutRequest) (_ *CheckoutResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place",
		telemetry.AttrGateway.String(req.GatewayType),
		telemetry.AttrCurrency.String(req.Currency),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	gateway, err := payment.ParseGatewayType(req.GatewayType)
	if err != nil || !s.payments.Supports(gateway) {
		return nil, shared.NewDomainError("GATEWAY_UNAVAILABLE", fmt.Sprintf("Gateway %q is not available", req.GatewayType))
	}
	address, err := valueobject.NewAddress(req.ShippingAddress)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	cart := mergeCart(req.Items)
	if len(cart) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Your cart is empty")
	}

	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	currency := current.DefaultCurrency
	if req.Currency != "" {
		if currency, err = valueobject.ParseCurrency(req.Currency); err != nil {
			return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
		}
	}
	lines, rates, err := s.priceCart(ctx, cart, current, currency)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.EnsureCheckoutAccount(ctx, identityapp.CheckoutAccountInput{
		CallerID: callerID,
		Email:    req.Contact.Email,
		FullName: req.Contact.FullName,
		Phone:    req.Contact.Phone,
	})
	if err != nil {
		return nil, err
	}

	orders, err := s.buildOrders(ctx, lines, current, rates, currency, account.Profile.ID, address, req.Contact, gateway)
	if err != nil {
		return nil, err
	}

	checkoutID := orders[0].CheckoutID
	grandTotal := order.GrandTotal(orders)
	orderIDs := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	txn, err := payment.NewTransaction(checkoutID, account.Profile.ID, orderIDs, gateway, grandTotal, currency.String(), req.ReturnURL, req.Metadata)
	if err != nil {
		return nil, err
	}

	if err := s.store.Place(ctx, orders, txn); err != nil {
		return nil, err
	}
	s.publishOrders(ctx, orders)
	if s.metrics != nil {
		s.metrics.RecordCheckout(ctx, len(orders), grandTotal, currency.String())
	}

	s.logger.Info("Checkout placed",
		zap.String("checkout_id", checkoutID.String()),
		zap.String("customer_id", account.Profile.ID.String()),
		zap.Int("vendor_orders", len(orders)),
		zap.String("grand_total", grandTotal.String()),
		zap.String("currency", currency.String()),
		zap.String("gateway", gateway.String()))

	result, err := s.payments.Start(ctx, paymentapp.StartInput{
		Transaction: txn,
		Orders:      orders,
		Metadata:    req.Metadata,
		PayerEmail:  req.Contact.Email,
	})
	if err != nil {
		s.logger.Error("Failed to start payment",
			zap.String("checkout_id", checkoutID.String()),
			zap.Error(err))
		result = &paymentapp.PaymentResult{
			TransactionID: txn.ID,
			Status:        string(txn.Status),
			Error:         "Payment could not be started, please retry from your orders",
		}
	}

	return &CheckoutResponse{
		CheckoutID: checkoutID,
		Orders:     ToOrderResponses(orders),
		GrandTotal: grandTotal,
		Currency:   currency.String(),
		Payment:    result,
		Account:    account.Tokens,
	}, nil
}

// priceCart loads the cart's products and vendors and prices every line in
// the checkout currency. The rate table it priced with is returned for the
// order totals.
func (s *CheckoutService) priceCart(ctx context.Context, cart []CartItem, current *settings.MarketplaceSettings, currency valueobject.Currency) ([]pricedLine, settings.RateTable, error) {
	var rates settings.RateTable
	ids := make([]uuid.UUID, len(cart))
	for i, item := range cart {
		ids[i] = item.ProductID
	}
	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, rates, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	vendorIDs := make([]uuid.UUID, 0, len(found))
	seen := make(map[uuid.UUID]bool)
	for i := range found {
		products[found[i].ID] = &found[i]
		if !seen[found[i].VendorID] {
			seen[found[i].VendorID] = true
			vendorIDs = append(vendorIDs, found[i].VendorID)
		}
	}
	vendors := make(map[uuid.UUID]*vendor.VendorProfile, len(vendorIDs))
	if len(vendorIDs) > 0 {
		list, err := s.vendorRepo.FindByIDs(ctx, vendorIDs)
		if err != nil {
			return nil, rates, err
		}
		for i := range list {
			vendors[list[i].ID] = &list[i]
		}
	}

	currencies := make([]valueobject.Currency, 0, len(found))
	for i := range found {
		currencies = append(currencies, found[i].Currency)
	}
	if rates, err = s.rateTable(ctx, current, currency, currencies); err != nil {
		return nil, rates, err
	}

	lines := make([]pricedLine, 0, len(cart))
	for _, item := range cart {
		p, ok := products[item.ProductID]
		if !ok || !p.IsPurchasable() {
			return nil, rates, unavailable(item.ProductID, p)
		}
		v, ok := vendors[p.VendorID]
		if !ok || !v.IsApproved() {
			return nil, rates, unavailable(item.ProductID, p)
		}
		if p.Stock < item.Quantity {
			return nil, rates, shared.NewDomainError(catalog.ErrInsufficientStock.Code,
				fmt.Sprintf("Only %d of %s left in stock", p.Stock, p.Name))
		}

		basePrice, err := rates.Convert(p.BasePrice, p.Currency, currency)
		if err != nil {
			return nil, rates, err
		}
		rule := v.PricingStrategy()
		ps, err := s.strategies.GetPricingStrategy(rule)
		if err != nil {
			return nil, rates, err
		}
		priced, err := ps.CalculatePrice(ctx, strategy.PricingContext{
			ProductID: p.ID.String(),
			VendorID:  v.ID.String(),
			Quantity:  item.Quantity,
			BasePrice: basePrice.Round(valueobject.CentPlaces),
			Currency:  currency.String(),
			Settings:  current.Pricing(),
		})
		if err != nil {
			return nil, rates, err
		}
		line, err := order.NewItem(p.ID, p.Name, item.Quantity, priced.Unit, priced.Line, rule)
		if err != nil {
			return nil, rates, err
		}
		lines = append(lines, pricedLine{vendor: v, item: line})
	}
	return lines, rates, nil
}

// buildOrders splits priced lines into one order per vendor and allocates
// shipping across them
func (s *CheckoutService) buildOrders(
	ctx context.Context,
	lines []pricedLine,
	current *settings.MarketplaceSettings,
	rates settings.RateTable,
	currency valueobject.Currency,
	customerID uuid.UUID,
	address valueobject.Address,
	contact Contact,
	gateway payment.GatewayType,
) ([]*order.Order, error) {
	vendorLines := make([]order.VendorLine, len(lines))
	vendors := make(map[uuid.UUID]*vendor.VendorProfile)
	for i, l := range lines {
		vendorLines[i] = order.VendorLine{VendorID: l.vendor.ID, Item: l.item}
		vendors[l.vendor.ID] = l.vendor
	}
	groups := order.SplitByVendor(vendorLines)

	fee, err := rates.Convert(current.ShippingFee, current.DefaultCurrency, currency)
	if err != nil {
		return nil, err
	}
	threshold, err := rates.Convert(current.FreeShippingThreshold, current.DefaultCurrency, currency)
	if err != nil {
		return nil, err
	}
	shipping, err := s.strategies.GetShippingStrategy(current.ShippingStrategy)
	if err != nil {
		return nil, err
	}
	allocation, err := shipping.Allocate(ctx, strategy.ShippingContext{
		VendorSubtotals: order.Subtotals(groups),
		Fee:             fee,
		FreeThreshold:   threshold,
		Currency:        currency.String(),
	})
	if err != nil {
		return nil, err
	}

	rate, err := rates.Rate(current.DefaultCurrency, currency)
	if err != nil {
		return nil, err
	}
	checkoutID := uuid.New()
	orders := make([]*order.Order, 0, len(groups))
	for i, g := range groups {
		o, err := order.NewOrder(checkoutID, customerID, g.VendorID, currency, rate, address)
		if err != nil {
			return nil, err
		}
		o.ContactEmail = strings.TrimSpace(contact.Email)
		o.ContactPhone = strings.TrimSpace(contact.Phone)
		commissionRate := current.Pricing().EffectiveCommissionRate()
		if vendors[g.VendorID].CommissionExempt {
			commissionRate = decimal.Zero
		}
		o.SetCommissionRate(commissionRate)
		for _, item := range g.Items {
			if err := o.AddItem(item); err != nil {
				return nil, err
			}
		}
		if err := o.SetShipping(allocation[i]); err != nil {
			return nil, err
		}
		if err := o.Place(gateway.String()); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// rateTable loads the enabled currencies unless every amount involved is
// already in the default currency. Products keep the currency they were
// listed in even after the default changes.
func (s *CheckoutService) rateTable(ctx context.Context, current *settings.MarketplaceSettings, currency valueobject.Currency, priced []valueobject.Currency) (settings.RateTable, error) {
	local := currency == current.DefaultCurrency
	for _, c := range priced {
		local = local && c == current.DefaultCurrency
	}
	if local {
		return settings.NewRateTable(current.DefaultCurrency, nil), nil
	}
	currencies, err := s.settingsRepo.ListCurrencies(ctx, true)
	if err != nil {
		return settings.RateTable{}, err
	}
	return settings.NewRateTable(current.DefaultCurrency, currencies), nil
}

// GetOrder returns an order visible to the principal
func (s *CheckoutService) GetOrder(ctx context.Context, p Principal, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.visibleOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListCustomerOrders lists the buyer's own orders
func (s *CheckoutService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, req ListOrdersRequest) (shared.Paginated[OrderResponse], error) {
	filter := orderFilter(req)
	filter.CustomerID = &customerID
	return s.list(ctx, filter)
}

// ListVendorOrders lists orders a vendor has to fulfil
func (s *CheckoutService) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, req ListOrdersRequest) (shared.Paginated[OrderResponse], error) {
	filter := orderFilter(req)
	filter.VendorID = &vendorID
	return s.list(ctx, filter)
}

// ListOrders lists every order (admin)
func (s *CheckoutService) ListOrders(ctx context.Context, req ListOrdersRequest) (shared.Paginated[OrderResponse], error) {
	return s.list(ctx, orderFilter(req))
}

func (s *CheckoutService) list(ctx context.Context, filter order.Filter) (shared.Paginated[OrderResponse], error) {
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// UpdateFulfilment moves a vendor's own order through processing, shipped
// and delivered
func (s *CheckoutService) UpdateFulfilment(ctx context.Context, vendorID, orderID uuid.UUID, req FulfilmentRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.VendorID != vendorID {
		return nil, shared.ErrNotFound
	}
	if err := o.UpdateFulfilment(order.Status(req.Status), strings.TrimSpace(req.TrackingNumber)); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	s.publishOrders(ctx, []*order.Order{o})

	s.logger.Info("Order fulfilment updated",
		zap.String("order_id", o.ID.String()),
		zap.String("status", o.Status.String()))
	resp := ToOrderResponse(o)
	return &resp, nil
}

// CancelOrder cancels an unpaid order and returns its stock
func (s *CheckoutService) CancelOrder(ctx context.Context, p Principal, orderID uuid.UUID, req CancelRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.Admin && o.CustomerID != p.UserID {
		return nil, shared.ErrNotFound
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled by customer"
	}
	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.store.Release(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	s.voidPayments(ctx, []*order.Order{o}, "order cancelled")
	s.publishOrders(ctx, []*order.Order{o})
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ExpireStale cancels unpaid orders older than maxAge and returns their
// stock. Returns how many orders were cancelled.
func (s *CheckoutService) ExpireStale(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	stale, err := s.orderRepo.FindStalePending(ctx, time.Now().Add(-maxAge), limit)
	if err != nil {
		return 0, err
	}
	expired := make([]*order.Order, 0, len(stale))
	for _, o := range stale {
		if err := o.Cancel("payment not received"); err != nil {
			s.logger.Warn("Cannot expire order", zap.String("order_id", o.ID.String()), zap.Error(err))
			continue
		}
		expired = append(expired, o)
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.store.Release(ctx, expired); err != nil {
		return 0, err
	}
	s.voidPayments(ctx, expired, "order expired")
	s.publishOrders(ctx, expired)
	s.logger.Info("Expired unpaid orders", zap.Int("count", len(expired)))
	return len(expired), nil
}

// voidPayments closes attempts still open for cancelled orders. A failure is
// logged only: the orders are already cancelled and payment settlement
// refuses to capture for them.
func (s *CheckoutService) voidPayments(ctx context.Context, orders []*order.Order, reason string) {
	voided, err := s.payments.VoidPending(ctx, orders, reason)
	if err != nil {
		s.logger.Warn("Failed to void open payments",
			zap.Int("orders", len(orders)),
			zap.Error(err))
		return
	}
	if voided > 0 {
		s.logger.Info("Voided open payments", zap.Int("count", voided), zap.String("reason", reason))
	}
}

// GetInvoice renders the invoice PDF of a paid order
func (s *CheckoutService) GetInvoice(ctx context.Context, p Principal, orderID uuid.UUID) ([]byte, string, error) {
	if s.invoices == nil {
		return nil, "", shared.NewDomainError("INVOICES_DISABLED", "Invoice rendering is not configured")
	}
	o, err := s.visibleOrder(ctx, p, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.Status == order.StatusPendingPayment || o.Status == order.StatusCancelled {
		return nil, "", shared.NewDomainError("INVALID_STATE", "Invoices are issued once an order is paid")
	}
	v, err := s.vendorRepo.FindByID(ctx, o.VendorID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.invoices.RenderInvoice(ctx, o, v)
	if err != nil {
		return nil, "", fmt.Errorf("render invoice: %w", err)
	}
	return pdf, fmt.Sprintf("invoice-%s.pdf", o.OrderNumber), nil
}

func (s *CheckoutService) visibleOrder(ctx context.Context, p Principal, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Admin, o.CustomerID == p.UserID:
		return o, nil
	case p.VendorID != nil && o.VendorID == *p.VendorID:
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (s *CheckoutService) publishOrders(ctx context.Context, orders []*order.Order) {
	events := make([]shared.DomainEvent, 0, len(orders))
	for _, o := range orders {
		events = append(events, o.PullDomainEvents()...)
	}
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish order events", zap.Error(err))
	}
}

// mergeCart folds repeated products into one line, keeping cart order
func mergeCart(items []CartItem) []CartItem {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func orderFilter(req ListOrdersRequest) order.Filter {
	return order.Filter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   strings.TrimSpace(req.Search),
		}.Normalize("created_at", "total", "status"),
		Status: order.Status(req.Status),
	}
}

func unavailable(id uuid.UUID, p *catalog.Product) error {
	name := id.String()
	if p != nil {
		name = p.Name
	}
	return shared.NewDomainError(catalog.ErrProductUnavailable.Code, fmt.Sprintf("%s is not available for purchase", name))
}
