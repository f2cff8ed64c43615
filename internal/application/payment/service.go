package payment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxRefundAttempts bounds reloads when an order changed during a refund
const maxRefundAttempts = 3

// Metrics records payment outcomes per gateway
type Metrics interface {
	RecordPayment(ctx context.Context, gateway, status string, latency time.Duration)
}

// Config holds the URLs handed to gateways
type Config struct {
	// CallbackBaseURL is the public base URL gateways post callbacks to
	CallbackBaseURL string
	// IdempotencyTTL is how long a handled callback is remembered
	IdempotencyTTL time.Duration
}

// PaymentService starts payments and applies gateway outcomes to orders
type PaymentService struct {
	txnRepo     payment.TransactionRepository
	orderRepo   order.Repository
	store       order.CheckoutStore
	gateways    payment.GatewayRegistry
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	metrics     Metrics
	cfg         Config
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txnRepo payment.TransactionRepository,
	orderRepo order.Repository,
	store order.CheckoutStore,
	gateways payment.GatewayRegistry,
	idempotency shared.IdempotencyStore,
	cfg Config,
	logger *zap.Logger,
) *PaymentService {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	cfg.CallbackBaseURL = strings.TrimRight(cfg.CallbackBaseURL, "/")
	return &PaymentService{
		txnRepo:     txnRepo,
		orderRepo:   orderRepo,
		store:       store,
		gateways:    gateways,
		idempotency: idempotency,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *PaymentService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Supports reports whether checkout may use the gateway
func (s *PaymentService) Supports(gateway payment.GatewayType) bool {
	return s.gateways.IsEnabled(gateway)
}

// Start sends a persisted transaction to its gateway. Gateway failures
// complete the transaction as failed and cancel its orders; they are
// reported in the result, not as an error.
func (s *PaymentService) Start(ctx context.Context, in StartInput) (*PaymentResult, error) {
	txn := in.Transaction
	gw, err := s.gateways.GetGateway(txn.Gateway)
	if err != nil {
		if settleErr := s.settle(ctx, txn, in.Orders, payment.GatewayStatusFailed, err.Error()); settleErr != nil {
			return nil, settleErr
		}
		return resultOf(txn), nil
	}

	req := &payment.CreatePaymentRequest{
		TransactionID: txn.ID,
		Reference:     txn.Reference,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Description:   describe(in.Orders),
		ReturnURL:     txn.ReturnURL,
		NotifyURL:     s.callbackURL(txn.Gateway),
		PayerEmail:    in.PayerEmail,
		Metadata:      in.Metadata,
	}
	if err := req.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", err.Error()).WithCause(err)
	}

	started := time.Now()
	resp, err := gw.CreatePayment(ctx, req)
	if err != nil {
		s.logger.Warn("Gateway rejected payment",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("gateway", txn.Gateway.String()),
			zap.Error(err))
		s.record(ctx, txn.Gateway, payment.GatewayStatusFailed, time.Since(started))
		if settleErr := s.settle(ctx, txn, in.Orders, payment.GatewayStatusFailed, failureMessage(err)); settleErr != nil {
			return nil, settleErr
		}
		return resultOf(txn), nil
	}

	txn.Initiated(resp)
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, err
	}
	if resp.Status.IsFinal() {
		s.record(ctx, txn.Gateway, resp.Status, time.Since(started))
		if err := s.settle(ctx, txn, in.Orders, resp.Status, resp.FailureReason); err != nil {
			return nil, err
		}
		return resultOf(txn), nil
	}
	s.publishTransaction(ctx, txn)

	s.logger.Info("Payment started",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("gateway", txn.Gateway.String()),
		zap.Bool("redirect", resp.IsRedirect()))
	return resultOf(txn), nil
}

// ProcessPayment pays the outstanding orders of a checkout group or a single
// order. The amount must match what is owed. Earlier attempts still pending
// for those orders are voided first.
func (s *PaymentService) ProcessPayment(ctx context.Context, customerID uuid.UUID, req ProcessPaymentRequest, payerEmail string) (*PaymentResult, error) {
	gateway, err := payment.ParseGatewayType(req.GatewayType)
	if err != nil || !s.gateways.IsEnabled(gateway) {
		return nil, shared.NewDomainError("GATEWAY_UNAVAILABLE", fmt.Sprintf("Gateway %q is not available", req.GatewayType))
	}

	orders, err := s.resolveOrders(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	outstanding := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o.CustomerID != customerID {
			return nil, shared.ErrForbidden
		}
		if o.Status == order.StatusPendingPayment {
			outstanding = append(outstanding, o)
		}
	}
	if len(outstanding) == 0 {
		return nil, shared.NewDomainError("NOTHING_TO_PAY", "The order has no outstanding balance")
	}

	amount := order.GrandTotal(outstanding).Round(2)
	if !req.Amount.Round(2).Equal(amount) {
		s.logger.Warn("Payment amount mismatch",
			zap.String("order_id", req.OrderID.String()),
			zap.String("requested", req.Amount.String()),
			zap.String("outstanding", amount.String()))
		return nil, payment.ErrAmountMismatch
	}
	currency := outstanding[0].Currency.String()
	if !strings.EqualFold(req.Currency, currency) {
		return nil, shared.NewDomainError("CURRENCY_MISMATCH", fmt.Sprintf("Orders are payable in %s", currency))
	}

	if _, err := s.VoidPending(ctx, outstanding, "superseded by a new payment attempt"); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(outstanding))
	for i, o := range outstanding {
		ids[i] = o.ID
	}
	txn, err := payment.NewTransaction(outstanding[0].CheckoutID, customerID, ids, gateway, amount, currency, req.ReturnURL, req.Metadata)
	if err != nil {
		return nil, err
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, err
	}

	return s.Start(ctx, StartInput{
		Transaction: txn,
		Orders:      outstanding,
		Metadata:    req.Metadata,
		PayerEmail:  payerEmail,
	})
}

// HandleCallback verifies and applies an asynchronous gateway notification.
// Each (gateway, reference, status) triple is applied once.
func (s *PaymentService) HandleCallback(ctx context.Context, gatewayName string, payload []byte, headers map[string]string) (_ *CallbackResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "callback", telemetry.AttrGateway.String(gatewayName))
	defer func() { telemetry.EndSpan(span, err) }()

	gatewayType, err := payment.ParseGatewayType(gatewayName)
	if err != nil {
		return nil, err
	}
	gw, err := s.gateways.GetGateway(gatewayType)
	if err != nil {
		return nil, err
	}

	cb, err := gw.VerifyCallback(ctx, payload, headers)
	if err != nil {
		s.logger.Warn("Callback verification failed",
			zap.String("gateway", gatewayName),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidCallback, err)
	}

	s.logger.Info("Payment callback received",
		zap.String("gateway", gatewayName),
		zap.String("gateway_reference", cb.GatewayReference),
		zap.String("status", string(cb.Status)))

	key := fmt.Sprintf("payment:%s:%s:%s", gatewayType, cb.GatewayReference, cb.Status)
	claimed, err := s.idempotency.MarkProcessed(ctx, key, s.cfg.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("claim callback: %w", err)
	}
	if !claimed {
		s.logger.Info("Callback already processed", zap.String("idempotency_key", key))
		return &CallbackResult{Status: string(cb.Status), AlreadyProcessed: true}, nil
	}

	result, err := s.applyCallback(ctx, gw, cb)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			s.logger.Warn("Failed to release callback claim", zap.String("idempotency_key", key), zap.Error(releaseErr))
		}
		s.logger.Error("Failed to apply payment callback",
			zap.String("gateway_reference", cb.GatewayReference),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) applyCallback(ctx context.Context, gw payment.Gateway, cb *payment.Callback) (*CallbackResult, error) {
	txn, err := s.txnRepo.FindByGatewayReference(ctx, cb.GatewayType, cb.GatewayReference)
	if err != nil && errors.Is(err, shared.ErrNotFound) && cb.TransactionID != uuid.Nil {
		txn, err = s.txnRepo.FindByID(ctx, cb.TransactionID)
	}
	if err != nil {
		return nil, err
	}

	if txn.Status.IsFinal() {
		if cb.Status.IsSuccess() && closedUnpaid(txn) {
			// money arrived for an attempt that was voided or failed
			if err := s.returnCapture(ctx, txn, "payment received after the attempt was closed"); err != nil {
				return nil, err
			}
		}
		return &CallbackResult{TransactionID: txn.ID, Status: string(txn.Status)}, nil
	}

	orders, err := s.ordersOf(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !payable(txn, orders) {
		if cb.Status.IsSuccess() {
			err = s.returnCapture(ctx, txn, "orders no longer payable")
		} else {
			_, err = s.void(ctx, txn, "orders no longer payable")
		}
		if err != nil {
			return nil, err
		}
		return &CallbackResult{TransactionID: txn.ID, Status: string(txn.Status)}, nil
	}

	status := cb.Status
	reason := ""
	if !status.IsFinal() {
		// redirect gateways call back on approval; the capture happens on query
		resp, err := gw.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: txn.GatewayReference, PollURL: txn.PollURL})
		if err != nil {
			return nil, err
		}
		status, reason = resp.Status, resp.FailureReason
	}
	if status.IsSuccess() && cb.Amount.IsPositive() && !cb.Amount.Round(2).Equal(txn.Amount) {
		s.logger.Error("Callback amount differs from transaction",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("callback_amount", cb.Amount.String()),
			zap.String("amount", txn.Amount.String()))
		status, reason = payment.GatewayStatusFailed, "amount mismatch"
	}

	if status.IsFinal() {
		s.record(ctx, txn.Gateway, status, time.Since(txn.CreatedAt))
		if err := s.settle(ctx, txn, orders, status, reason); err != nil {
			return nil, err
		}
	}
	return &CallbackResult{TransactionID: txn.ID, Status: string(txn.Status)}, nil
}

// GetTransaction returns a transaction visible to the caller
func (s *PaymentService) GetTransaction(ctx context.Context, id, callerID uuid.UUID, admin bool) (*TransactionResponse, error) {
	txn, err := s.txnRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && txn.CustomerID != callerID {
		return nil, shared.ErrNotFound
	}
	resp := ToTransactionResponse(txn)
	return &resp, nil
}

// PollPending re-queries gateways for transactions still pending and applies
// final outcomes. Attempts whose orders can no longer be paid are voided
// without a query, since a query captures on some gateways. Returns how many
// transactions were completed.
func (s *PaymentService) PollPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.txnRepo.FindPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for i := range pending {
		txn := &pending[i]
		gw, err := s.gateways.GetGateway(txn.Gateway)
		if err != nil {
			continue
		}
		orders, err := s.ordersOf(ctx, txn)
		if err != nil {
			return settled, err
		}
		if !payable(txn, orders) {
			voided, err := s.void(ctx, txn, "orders no longer payable")
			if err != nil {
				s.logger.Warn("Failed to void payment",
					zap.String("transaction_id", txn.ID.String()),
					zap.Error(err))
				continue
			}
			if voided {
				settled++
			}
			continue
		}

		resp, err := gw.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: txn.GatewayReference, PollURL: txn.PollURL})
		if err != nil {
			s.logger.Warn("Payment poll failed",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
			continue
		}
		if !resp.Status.IsFinal() {
			continue
		}
		s.record(ctx, txn.Gateway, resp.Status, time.Since(txn.CreatedAt))
		if err := s.settle(ctx, txn, orders, resp.Status, resp.FailureReason); err != nil {
			s.logger.Error("Failed to settle polled payment",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
			continue
		}
		settled++
	}
	if settled > 0 {
		s.logger.Info("Settled pending payments", zap.Int("count", settled))
	}
	return settled, nil
}

// VoidPending cancels pending attempts covering any of the orders, so a late
// approval can no longer capture them. Returns how many were voided.
func (s *PaymentService) VoidPending(ctx context.Context, orders []*order.Order, reason string) (int, error) {
	covered := make(map[uuid.UUID]bool, len(orders))
	checkouts := make([]uuid.UUID, 0, 1)
	for _, o := range orders {
		covered[o.ID] = true
		if !slices.Contains(checkouts, o.CheckoutID) {
			checkouts = append(checkouts, o.CheckoutID)
		}
	}

	voided := 0
	for _, checkoutID := range checkouts {
		txns, err := s.txnRepo.FindByCheckoutID(ctx, checkoutID)
		if err != nil {
			return voided, err
		}
		for i := range txns {
			txn := &txns[i]
			if txn.Status != payment.TransactionPending || !coversAny(txn, covered) {
				continue
			}
			ok, err := s.void(ctx, txn, reason)
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// completed meanwhile; a capture on it is returned by settle
				continue
			}
			if err != nil {
				return voided, err
			}
			if ok {
				voided++
			}
		}
	}
	return voided, nil
}

// Refund returns the full amount of one paid vendor order through the
// gateway that captured it
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID, req RefundRequest) (*TransactionResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(order.StatusRefunded) {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund a %s order", o.Status))
	}

	txn, err := s.capturedTransaction(ctx, o)
	if err != nil {
		return nil, err
	}
	gw, err := s.gateways.GetGateway(txn.Gateway)
	if err != nil {
		return nil, err
	}
	refundReq := &payment.RefundRequest{
		TransactionID:    txn.ID,
		GatewayReference: txn.GatewayReference,
		Amount:           o.Total,
		PaymentAmount:    txn.Amount,
		Currency:         txn.Currency,
		Reason:           req.Reason,
	}
	if err := refundReq.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_REFUND", err.Error()).WithCause(err)
	}
	resp, err := gw.CreateRefund(ctx, refundReq)
	if err != nil {
		return nil, err
	}
	if resp.Status == payment.GatewayStatusFailed {
		return nil, shared.NewDomainError("REFUND_FAILED", "The gateway declined the refund")
	}

	// the gateway has returned the money; from here the order must end up
	// refunded, even when a payout release bumped its version meanwhile
	full := o.Total.Equal(txn.Amount)
	if full {
		if _, err := txn.Complete(payment.GatewayStatusRefunded, req.Reason); err != nil {
			return nil, err
		}
	}
	o, err = s.recordRefund(ctx, o, txn, full, req.Reason)
	if err != nil {
		s.logger.Error("Gateway refund taken but order not updated",
			zap.String("order_id", orderID.String()),
			zap.String("transaction_id", txn.ID.String()),
			zap.String("gateway_refund_id", resp.GatewayRefundID),
			zap.Error(err))
		return nil, err
	}
	s.publishOrders(ctx, []*order.Order{o})
	s.publishTransaction(ctx, txn)

	s.logger.Info("Order refunded",
		zap.String("order_id", o.ID.String()),
		zap.String("transaction_id", txn.ID.String()),
		zap.String("gateway_refund_id", resp.GatewayRefundID))
	out := ToTransactionResponse(txn)
	return &out, nil
}

// recordRefund marks the order refunded after the gateway refunded it,
// reloading the order when another writer moved its version
func (s *PaymentService) recordRefund(ctx context.Context, o *order.Order, txn *payment.Transaction, full bool, reason string) (*order.Order, error) {
	var err error
	for attempt := 1; attempt <= maxRefundAttempts; attempt++ {
		if attempt > 1 {
			if o, err = s.orderRepo.FindByID(ctx, o.ID); err != nil {
				return nil, err
			}
			if o.Status == order.StatusRefunded {
				return o, nil
			}
		}
		if err = o.Refund(reason); err != nil {
			return nil, err
		}
		if full {
			err = s.store.Settle(ctx, txn, []*order.Order{o})
		} else {
			err = s.orderRepo.SaveWithLock(ctx, o)
		}
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Debug("order version moved during refund, retrying",
			zap.String("order_id", o.ID.String()),
			zap.Int("attempt", attempt))
	}
	return nil, err
}

// settle applies a final gateway status to a transaction and its orders.
// The orders and the transaction are written in one DB transaction, and
// events go out only after it commits.
func (s *PaymentService) settle(ctx context.Context, txn *payment.Transaction, orders []*order.Order, status payment.GatewayStatus, reason string) error {
	if status.IsSuccess() && txn.Status == payment.TransactionPending && !payable(txn, orders) {
		return s.returnCapture(ctx, txn, "orders no longer payable")
	}

	changed, err := txn.Complete(status, reason)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	touched := make([]*order.Order, 0, len(orders))
	switch txn.Status {
	case payment.TransactionSucceeded:
		for _, o := range orders {
			if err := o.MarkPaid(); err != nil {
				return err
			}
			touched = append(touched, o)
		}
	case payment.TransactionFailed, payment.TransactionCancelled:
		for _, o := range orders {
			if o.Status != order.StatusPendingPayment {
				continue
			}
			if err := o.Cancel("payment " + string(txn.Status)); err != nil {
				return err
			}
			touched = append(touched, o)
		}
	case payment.TransactionRefunded:
		for _, o := range orders {
			if !o.Status.CanTransitionTo(order.StatusRefunded) {
				continue
			}
			if err := o.Refund(reason); err != nil {
				return err
			}
			touched = append(touched, o)
		}
	}

	if err := s.store.Settle(ctx, txn, touched); err != nil {
		if status.IsSuccess() && errors.Is(err, shared.ErrConcurrencyConflict) {
			return s.recoverCapture(ctx, txn.ID)
		}
		return err
	}
	s.publishOrders(ctx, touched)
	s.publishTransaction(ctx, txn)

	s.logger.Info("Payment settled",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("status", string(txn.Status)),
		zap.Int("orders", len(touched)))
	return nil
}

// void closes a pending transaction without asking the gateway
func (s *PaymentService) void(ctx context.Context, txn *payment.Transaction, reason string) (bool, error) {
	if !txn.Void(reason) {
		return false, nil
	}
	if err := s.store.Settle(ctx, txn, nil); err != nil {
		return false, err
	}
	s.publishTransaction(ctx, txn)
	s.logger.Info("Payment voided",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("reason", reason))
	return true, nil
}

// returnCapture refunds money the gateway took for orders that can no longer
// be paid with it. A refund the gateway refuses leaves the transaction in
// review.
func (s *PaymentService) returnCapture(ctx context.Context, txn *payment.Transaction, reason string) error {
	refundErr := s.refundWhole(ctx, txn, reason)
	if refundErr != nil {
		s.logger.Error("Captured payment held for review",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("gateway", txn.Gateway.String()),
			zap.Error(refundErr))
	}
	if err := txn.CapturedLate(refundErr == nil, reason); err != nil {
		return err
	}
	if err := s.store.Settle(ctx, txn, nil); err != nil {
		return err
	}
	s.publishTransaction(ctx, txn)

	s.logger.Warn("Payment captured for unpayable orders",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("status", string(txn.Status)),
		zap.String("reason", reason))
	return nil
}

func (s *PaymentService) refundWhole(ctx context.Context, txn *payment.Transaction, reason string) error {
	gw, err := s.gateways.GetGateway(txn.Gateway)
	if err != nil {
		return err
	}
	resp, err := gw.CreateRefund(ctx, &payment.RefundRequest{
		TransactionID:    txn.ID,
		GatewayReference: txn.GatewayReference,
		Amount:           txn.Amount,
		PaymentAmount:    txn.Amount,
		Currency:         txn.Currency,
		Reason:           reason,
	})
	if err != nil {
		return err
	}
	if resp.Status == payment.GatewayStatusFailed {
		return errors.New("gateway declined the refund")
	}
	return nil
}

// recoverCapture handles a capture whose settlement lost a race. If the
// attempt was voided meanwhile the money goes back.
func (s *PaymentService) recoverCapture(ctx context.Context, txnID uuid.UUID) error {
	current, err := s.txnRepo.FindByID(ctx, txnID)
	if err != nil {
		return err
	}
	if current.Status == payment.TransactionPending || closedUnpaid(current) {
		return s.returnCapture(ctx, current, "payment captured after the attempt was closed")
	}
	return nil
}

// payable reports whether every order the transaction covers still waits
// for this payment
func payable(txn *payment.Transaction, orders []*order.Order) bool {
	if len(orders) != len(txn.OrderIDs) {
		return false
	}
	for _, o := range orders {
		if o.Status != order.StatusPendingPayment {
			return false
		}
	}
	return true
}

// closedUnpaid reports a transaction that completed without keeping money
func closedUnpaid(txn *payment.Transaction) bool {
	return txn.Status == payment.TransactionCancelled || txn.Status == payment.TransactionFailed
}

func coversAny(txn *payment.Transaction, orders map[uuid.UUID]bool) bool {
	for _, id := range txn.OrderIDs {
		if orders[id] {
			return true
		}
	}
	return false
}

func (s *PaymentService) resolveOrders(ctx context.Context, id uuid.UUID) ([]*order.Order, error) {
	orders, err := s.orderRepo.FindByCheckoutID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(orders) > 0 {
		return orders, nil
	}
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return []*order.Order{o}, nil
}

func (s *PaymentService) ordersOf(ctx context.Context, txn *payment.Transaction) ([]*order.Order, error) {
	all, err := s.orderRepo.FindByCheckoutID(ctx, txn.CheckoutID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[uuid.UUID]bool, len(txn.OrderIDs))
	for _, id := range txn.OrderIDs {
		wanted[id] = true
	}
	orders := make([]*order.Order, 0, len(txn.OrderIDs))
	for _, o := range all {
		if wanted[o.ID] {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *PaymentService) capturedTransaction(ctx context.Context, o *order.Order) (*payment.Transaction, error) {
	txns, err := s.txnRepo.FindByCheckoutID(ctx, o.CheckoutID)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		if txns[i].Succeeded() && txns[i].Covers(o.ID) {
			return &txns[i], nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "No captured payment found for this order")
}

func (s *PaymentService) callbackURL(gateway payment.GatewayType) string {
	if s.cfg.CallbackBaseURL == "" {
		return ""
	}
	return s.cfg.CallbackBaseURL + "/api/v1/payments/callback/" + gateway.String()
}

func (s *PaymentService) record(ctx context.Context, gateway payment.GatewayType, status payment.GatewayStatus, latency time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, gateway.String(), string(status), latency)
	}
}

func (s *PaymentService) publishOrders(ctx context.Context, orders []*order.Order) {
	events := make([]shared.DomainEvent, 0, len(orders))
	for _, o := range orders {
		events = append(events, o.PullDomainEvents()...)
	}
	s.publish(ctx, events)
}

func (s *PaymentService) publishTransaction(ctx context.Context, txn *payment.Transaction) {
	events := txn.PullDomainEvents()
	s.publish(ctx, events)
}

func (s *PaymentService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish payment events", zap.Error(err))
	}
}

func describe(orders []*order.Order) string {
	if len(orders) == 1 {
		return "Order " + orders[0].OrderNumber
	}
	return fmt.Sprintf("%d marketplace orders", len(orders))
}

// failureMessage hides transport details from buyers
func failureMessage(err error) string {
	if errors.Is(err, payment.ErrGatewayRequestFailed) {
		return "The payment provider could not be reached"
	}
	return err.Error()
}
