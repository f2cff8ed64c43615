package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxWalletAttempts bounds retries when a wallet version moved under us
const maxWalletAttempts = 3

// WalletService keeps vendor wallets and platform commissions in step with
// the order lifecycle
type WalletService struct {
	walletRepo     wallet.Repository
	commissionRepo wallet.CommissionRepository
	payouts        wallet.PayoutStore
	orderRepo      order.Repository
	vendorRepo     vendor.Repository
	settingsRepo   settings.Repository
	publisher      shared.EventPublisher
	logger         *zap.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(
	walletRepo wallet.Repository,
	commissionRepo wallet.CommissionRepository,
	payouts wallet.PayoutStore,
	orderRepo order.Repository,
	vendorRepo vendor.Repository,
	settingsRepo settings.Repository,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		walletRepo:     walletRepo,
		commissionRepo: commissionRepo,
		payouts:        payouts,
		orderRepo:      orderRepo,
		vendorRepo:     vendorRepo,
		settingsRepo:   settingsRepo,
		logger:         logger,
	}
}

// SetEventPublisher sets the publisher used for the change feed
func (s *WalletService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreditPaidOrder holds the vendor payout of a paid order in the pending
// balance and records the platform commission. A second call for the same
// order is a no-op.
func (s *WalletService) CreditPaidOrder(ctx context.Context, o *order.Order) error {
	if _, err := s.commissionRepo.FindByOrderID(ctx, o.ID); err == nil {
		s.logger.Debug("order already credited, skipping", zap.String("order_id", o.ID.String()))
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	c, err := wallet.NewCommission(o.ID, o.VendorID, o.CommissionRate,
		toWalletCurrency(o.Subtotal, o), toWalletCurrency(o.Commission, o), valueobject.DefaultCurrency)
	if err != nil {
		return err
	}
	payout := toWalletCurrency(o.VendorPayout, o)
	err = s.updateWallet(ctx, o.VendorID,
		func(w *wallet.Wallet) error { return w.Credit(payout, o.ID, o.OrderNumber) },
		func(w *wallet.Wallet) error { return s.payouts.CreditOrder(ctx, w, c) })
	if errors.Is(err, shared.ErrAlreadyExists) {
		s.logger.Debug("order credited concurrently, skipping", zap.String("order_id", o.ID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	s.publish(ctx, c.PullDomainEvents())

	s.logger.Info("Vendor wallet credited",
		zap.String("order_id", o.ID.String()),
		zap.String("vendor_id", o.VendorID.String()),
		zap.String("payout", payout.String()),
		zap.String("commission", c.Amount.String()))
	return nil
}

// CreditMissed credits paid orders that never got a commission, for example
// when the wallet handler failed after payment, and returns how many it
// credited
func (s *WalletService) CreditMissed(ctx context.Context, limit int) (int, error) {
	ids, err := s.commissionRepo.FindUncreditedOrderIDs(ctx, limit)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, id := range ids {
		o, err := s.orderRepo.FindByID(ctx, id)
		if err == nil {
			err = s.CreditPaidOrder(ctx, o)
		}
		if err != nil {
			s.logger.Warn("failed to credit paid order",
				zap.String("order_id", id.String()),
				zap.Error(err))
			continue
		}
		credited++
	}
	return credited, nil
}

// ReleaseOrder moves an order's held payout into the vendor's available
// balance and settles the commission. The order is claimed in the same
// transaction, so concurrent releases move the money once.
func (s *WalletService) ReleaseOrder(ctx context.Context, o *order.Order) error {
	if o.PayoutReleased() {
		return nil
	}
	if err := o.MarkPayoutReleased(); err != nil {
		return err
	}
	releasedAt := *o.PayoutReleasedAt

	c, err := s.commissionRepo.FindByOrderID(ctx, o.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		s.logger.Warn("no commission recorded for released order", zap.String("order_id", o.ID.String()))
		c = nil
	case err != nil:
		o.PayoutReleasedAt = nil
		return err
	default:
		if err := c.Settle(); err != nil {
			o.PayoutReleasedAt = nil
			return err
		}
	}

	claim := func(w *wallet.Wallet) error {
		return s.payouts.ReleaseOrder(ctx, o.ID, releasedAt, w, c)
	}
	payout := toWalletCurrency(o.VendorPayout, o)
	if payout.IsPositive() {
		err = s.updateWallet(ctx, o.VendorID,
			func(w *wallet.Wallet) error { return w.Release(payout, o.ID, o.OrderNumber) },
			claim)
	} else {
		err = claim(nil)
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		s.logger.Debug("payout already released", zap.String("order_id", o.ID.String()))
		return nil
	}
	if err != nil {
		o.PayoutReleasedAt = nil
		return err
	}
	o.Version++
	if c != nil {
		s.publish(ctx, c.PullDomainEvents())
	}

	s.logger.Info("Vendor payout released",
		zap.String("order_id", o.ID.String()),
		zap.String("vendor_id", o.VendorID.String()),
		zap.String("amount", payout.String()))
	return nil
}

// ReverseOrder takes a refunded order's payout back from the vendor and
// reverses the commission. The commission is claimed in the same
// transaction, so the money comes back once.
func (s *WalletService) ReverseOrder(ctx context.Context, o *order.Order) error {
	c, err := s.commissionRepo.FindByOrderID(ctx, o.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// never credited, nothing to take back
			return nil
		}
		return err
	}
	if c.Status == wallet.CommissionReversed {
		return nil
	}
	if err := c.Reverse(); err != nil {
		return err
	}

	claim := func(w *wallet.Wallet) error {
		return s.payouts.ReverseOrder(ctx, w, c)
	}
	payout := toWalletCurrency(o.VendorPayout, o)
	if payout.IsPositive() {
		err = s.updateWallet(ctx, o.VendorID,
			func(w *wallet.Wallet) error { return w.Reverse(payout, o.ID, o.PayoutReleased(), o.OrderNumber) },
			claim)
	} else {
		err = claim(nil)
	}
	if errors.Is(err, shared.ErrAlreadyExists) {
		s.logger.Debug("order already reversed", zap.String("order_id", o.ID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	s.publish(ctx, c.PullDomainEvents())

	s.logger.Info("Vendor payout reversed",
		zap.String("order_id", o.ID.String()),
		zap.String("vendor_id", o.VendorID.String()),
		zap.String("amount", payout.String()),
		zap.Bool("was_released", o.PayoutReleased()))
	return nil
}

// ReleaseDue releases payouts whose hold period elapsed and returns how many
// orders were released
func (s *WalletService) ReleaseDue(ctx context.Context, limit int) (int, error) {
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -current.PayoutHoldDays)
	orders, err := s.orderRepo.FindReleasable(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, o := range orders {
		err := s.ReleaseOrder(ctx, o)
		if errors.Is(err, shared.ErrInvalidState) {
			// refunded or cancelled since it was listed
			s.logger.Debug("skipping payout release",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		if err != nil {
			s.logger.Warn("failed to release vendor payout",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		released++
	}
	return released, nil
}

// GetWallet returns a vendor's wallet
func (s *WalletService) GetWallet(ctx context.Context, vendorID uuid.UUID) (*WalletResponse, error) {
	w, err := s.walletRepo.FindByVendorID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	resp := ToWalletResponse(w)
	return &resp, nil
}

// ListTransactions pages through a vendor's wallet movements, newest first
func (s *WalletService) ListTransactions(ctx context.Context, vendorID uuid.UUID, req ListTransactionsRequest) (shared.Paginated[TransactionResponse], error) {
	filter := shared.Filter{Page: req.Page, PageSize: req.PageSize, OrderDir: req.OrderDir}.Normalize("created_at")

	txs, total, err := s.walletRepo.ListTransactions(ctx, vendorID, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	items := make([]TransactionResponse, len(txs))
	for i := range txs {
		items[i] = ToTransactionResponse(&txs[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// RequestPayout withdraws from the available balance to the vendor's payout
// account
func (s *WalletService) RequestPayout(ctx context.Context, vendorID uuid.UUID, req PayoutRequest) (*TransactionResponse, error) {
	v, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(v.Payout.Method) == "" || strings.TrimSpace(v.Payout.AccountNumber) == "" {
		return nil, shared.NewDomainError("PAYOUT_DETAILS_MISSING", "Add payout details to your store before requesting a payout")
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = v.Payout.Method
	}

	var tx wallet.Transaction
	err = s.withWallet(ctx, vendorID, func(w *wallet.Wallet) error {
		recorded, err := w.RequestPayout(req.Amount, reference)
		if err != nil {
			return err
		}
		tx = *recorded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout requested",
		zap.String("vendor_id", vendorID.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("method", v.Payout.Method))

	resp := ToTransactionResponse(&tx)
	return &resp, nil
}

// ListCommissions lists commissions, restricted to one vendor when vendorID
// is set
func (s *WalletService) ListCommissions(ctx context.Context, vendorID *uuid.UUID, req ListCommissionsRequest) (shared.Paginated[CommissionResponse], error) {
	filter := wallet.CommissionFilter{
		Filter:   shared.Filter{Page: req.Page, PageSize: req.PageSize}.Normalize("created_at", "amount"),
		VendorID: vendorID,
		Status:   wallet.CommissionStatus(req.Status),
	}
	if vendorID == nil && req.VendorID != "" {
		id, err := uuid.Parse(req.VendorID)
		if err != nil {
			return shared.Paginated[CommissionResponse]{}, shared.ErrInvalidInput
		}
		filter.VendorID = &id
	}

	list, total, err := s.commissionRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CommissionResponse]{}, err
	}
	items := make([]CommissionResponse, len(list))
	for i := range list {
		items[i] = ToCommissionResponse(&list[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// CommissionSummary totals commissions, for one vendor or the whole platform
func (s *WalletService) CommissionSummary(ctx context.Context, vendorID *uuid.UUID) (*CommissionSummaryResponse, error) {
	summary, err := s.commissionRepo.Summary(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	resp := ToCommissionSummaryResponse(summary)
	return &resp, nil
}

// withWallet loads the vendor wallet, applies fn and saves
func (s *WalletService) withWallet(ctx context.Context, vendorID uuid.UUID, fn func(*wallet.Wallet) error) error {
	return s.updateWallet(ctx, vendorID, fn, func(w *wallet.Wallet) error {
		return s.walletRepo.Save(ctx, w)
	})
}

// updateWallet applies fn to a fresh wallet and hands it to save, retrying
// from a new copy when another writer bumped the version
func (s *WalletService) updateWallet(ctx context.Context, vendorID uuid.UUID, fn, save func(*wallet.Wallet) error) error {
	var err error
	for attempt := 1; attempt <= maxWalletAttempts; attempt++ {
		var w *wallet.Wallet
		w, err = s.loadWallet(ctx, vendorID)
		if err != nil {
			return err
		}
		if err = fn(w); err != nil {
			return err
		}
		err = save(w)
		if err == nil {
			w.ClearTransactions()
			s.publish(ctx, w.PullDomainEvents())
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Debug("wallet version conflict, retrying",
			zap.String("vendor_id", vendorID.String()),
			zap.Int("attempt", attempt))
	}
	return err
}

// loadWallet returns the vendor's wallet, opening one for vendors that
// predate wallets
func (s *WalletService) loadWallet(ctx context.Context, vendorID uuid.UUID) (*wallet.Wallet, error) {
	w, err := s.walletRepo.FindByVendorID(ctx, vendorID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return wallet.NewWallet(vendorID, current.DefaultCurrency)
}

func (s *WalletService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish wallet events", zap.Error(err))
	}
}

// toWalletCurrency converts an order amount back into the marketplace
// default currency wallets are kept in
func toWalletCurrency(amount decimal.Decimal, o *order.Order) decimal.Decimal {
	if o.ExchangeRate.IsZero() || o.ExchangeRate.Equal(decimal.NewFromInt(1)) {
		return amount
	}
	return amount.Div(o.ExchangeRate).Round(valueobject.CentPlaces)
}
