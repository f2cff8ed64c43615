package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, vendorID uuid.UUID, filter shared.Filter) ([]wallet.Transaction, int64, error) {
	args := m.Called(ctx, vendorID, filter)
	return args.Get(0).([]wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*wallet.Commission, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindAll(ctx context.Context, filter wallet.CommissionFilter) ([]wallet.Commission, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]wallet.Commission), args.Get(1).(int64), args.Error(2)
}

func (m *MockCommissionRepository) Save(ctx context.Context, c *wallet.Commission) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCommissionRepository) Summary(ctx context.Context, vendorID *uuid.UUID) (wallet.CommissionSummary, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).(wallet.CommissionSummary), args.Error(1)
}

func (m *MockCommissionRepository) FindUncreditedOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockPayoutStore struct {
	mock.Mock
}

func (m *MockPayoutStore) CreditOrder(ctx context.Context, w *wallet.Wallet, c *wallet.Commission) error {
	return m.Called(ctx, w, c).Error(0)
}

func (m *MockPayoutStore) ReleaseOrder(ctx context.Context, orderID uuid.UUID, releasedAt time.Time, w *wallet.Wallet, c *wallet.Commission) error {
	return m.Called(ctx, orderID, releasedAt, w, c).Error(0)
}

func (m *MockPayoutStore) ReverseOrder(ctx context.Context, w *wallet.Wallet, c *wallet.Commission) error {
	return m.Called(ctx, w, c).Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, checkoutID)
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindReleasable(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) PaidTotals(ctx context.Context) (order.Totals, error) {
	args := m.Called(ctx)
	return args.Get(0).(order.Totals), args.Error(1)
}

type MockVendorRepository struct {
	mock.Mock
}

func (m *MockVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindBySlug(ctx context.Context, slug string) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]vendor.VendorProfile, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]vendor.VendorProfile, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]vendor.VendorProfile), args.Get(1).(int64), args.Error(2)
}

func (m *MockVendorRepository) ExistsBySlug(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVendorRepository) Save(ctx context.Context, v *vendor.VendorProfile) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVendorRepository) CountByStatus(ctx context.Context, status vendor.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*settings.MarketplaceSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.MarketplaceSettings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, s *settings.MarketplaceSettings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSettingsRepository) ListCurrencies(ctx context.Context, enabledOnly bool) ([]settings.Currency, error) {
	args := m.Called(ctx, enabledOnly)
	return args.Get(0).([]settings.Currency), args.Error(1)
}

func (m *MockSettingsRepository) SaveCurrency(ctx context.Context, c *settings.Currency) error {
	return m.Called(ctx, c).Error(0)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type walletFixture struct {
	wallets     *MockWalletRepository
	commissions *MockCommissionRepository
	payouts     *MockPayoutStore
	orders      *MockOrderRepository
	vendors     *MockVendorRepository
	settings    *MockSettingsRepository
	publisher   *recordingPublisher
	service     *WalletService
}

func newWalletFixture() *walletFixture {
	f := &walletFixture{
		wallets:     new(MockWalletRepository),
		commissions: new(MockCommissionRepository),
		payouts:     new(MockPayoutStore),
		orders:      new(MockOrderRepository),
		vendors:     new(MockVendorRepository),
		settings:    new(MockSettingsRepository),
		publisher:   &recordingPublisher{},
	}
	f.service = NewWalletService(f.wallets, f.commissions, f.payouts, f.orders, f.vendors, f.settings, zap.NewNop())
	f.service.SetEventPublisher(f.publisher)
	return f
}

// paidOrder builds a paid order with base 100 x qty at 10% commission, so
// subtotal is 100*qty and the vendor payout equals the subtotal
func paidOrder(t *testing.T, vendorID uuid.UUID, qty int64, rate decimal.Decimal) *order.Order {
	t.Helper()
	currency := valueobject.USD
	if !rate.Equal(decimal.NewFromInt(1)) {
		currency = valueobject.EUR
	}
	o, err := order.NewOrder(uuid.New(), uuid.New(), vendorID, currency, rate, valueobject.Address{})
	require.NoError(t, err)
	unit := pricing.Calculate(decimal.NewFromInt(100).Mul(rate), pricing.Settings{
		CommissionEnabled: true, CommissionRate: decimal.NewFromInt(10),
	})
	item, err := order.NewItem(uuid.New(), "Lamp", qty, unit, unit.Scale(qty), strategy.PricingMarketplace)
	require.NoError(t, err)
	require.NoError(t, o.AddItem(item))
	o.SetCommissionRate(decimal.NewFromInt(10))
	require.NoError(t, o.Place("paypal"))
	require.NoError(t, o.MarkPaid())
	o.ClearDomainEvents()
	return o
}

func emptyWallet(t *testing.T, vendorID uuid.UUID) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(vendorID, valueobject.USD)
	require.NoError(t, err)
	return w
}

func TestWalletService_CreditPaidOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("credits pending and records commission", func(t *testing.T) {
		f := newWalletFixture()
		vendorID := uuid.New()
		o := paidOrder(t, vendorID, 2, decimal.NewFromInt(1))
		w := emptyWallet(t, vendorID)

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(w, nil)
		var saved *wallet.Commission
		f.payouts.On("CreditOrder", ctx, w, mock.Anything).Run(func(args mock.Arguments) {
			saved = args.Get(2).(*wallet.Commission)
		}).Return(nil)

		require.NoError(t, f.service.CreditPaidOrder(ctx, o))

		assert.True(t, w.Pending.Equal(decimal.NewFromInt(200)))
		assert.True(t, w.Available.IsZero())
		require.NotNil(t, saved)
		assert.True(t, saved.Amount.Equal(decimal.NewFromInt(20)))
		assert.True(t, saved.BaseAmount.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, wallet.CommissionPending, saved.Status)
		assert.Equal(t, []string{wallet.EventTypeWalletCredited, wallet.EventTypeCommissionRecorded}, f.publisher.types())
	})

	t.Run("converts foreign currency orders back to the wallet currency", func(t *testing.T) {
		f := newWalletFixture()
		vendorID := uuid.New()
		o := paidOrder(t, vendorID, 1, decimal.RequireFromString("0.5"))
		w := emptyWallet(t, vendorID)

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(w, nil)
		f.payouts.On("CreditOrder", ctx, w, mock.Anything).Return(nil)

		require.NoError(t, f.service.CreditPaidOrder(ctx, o))

		assert.True(t, o.VendorPayout.Equal(decimal.NewFromInt(50)))
		assert.True(t, w.Pending.Equal(decimal.NewFromInt(100)))
	})

	t.Run("already credited orders are skipped", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		existing, err := wallet.NewCommission(o.ID, o.VendorID, decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.NewFromInt(10), valueobject.USD)
		require.NoError(t, err)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(existing, nil)

		require.NoError(t, f.service.CreditPaidOrder(ctx, o))

		f.payouts.AssertNotCalled(t, "CreditOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("credit that loses to a concurrent one moves nothing", func(t *testing.T) {
		f := newWalletFixture()
		vendorID := uuid.New()
		o := paidOrder(t, vendorID, 1, decimal.NewFromInt(1))
		w := emptyWallet(t, vendorID)

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(w, nil)
		f.payouts.On("CreditOrder", ctx, w, mock.Anything).Return(shared.ErrAlreadyExists).Once()

		require.NoError(t, f.service.CreditPaidOrder(ctx, o))

		assert.Empty(t, f.publisher.events)
		f.wallets.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.commissions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.payouts.AssertExpectations(t)
	})

	t.Run("store failure leaves the order uncredited", func(t *testing.T) {
		f := newWalletFixture()
		vendorID := uuid.New()
		o := paidOrder(t, vendorID, 1, decimal.NewFromInt(1))
		w := emptyWallet(t, vendorID)

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(w, nil)
		f.payouts.On("CreditOrder", ctx, w, mock.Anything).Return(assert.AnError)

		assert.ErrorIs(t, f.service.CreditPaidOrder(ctx, o), assert.AnError)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("retries on version conflict", func(t *testing.T) {
		f := newWalletFixture()
		vendorID := uuid.New()
		o := paidOrder(t, vendorID, 1, decimal.NewFromInt(1))
		stale, fresh := emptyWallet(t, vendorID), emptyWallet(t, vendorID)

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(stale, nil).Once()
		f.wallets.On("FindByVendorID", ctx, vendorID).Return(fresh, nil).Once()
		f.payouts.On("CreditOrder", ctx, stale, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
		f.payouts.On("CreditOrder", ctx, fresh, mock.Anything).Return(nil).Once()

		require.NoError(t, f.service.CreditPaidOrder(ctx, o))

		assert.True(t, fresh.Pending.Equal(decimal.NewFromInt(100)))
		f.wallets.AssertExpectations(t)
		f.payouts.AssertExpectations(t)
	})
}

func TestWalletService_CreditMissed(t *testing.T) {
	ctx := context.Background()
	f := newWalletFixture()
	vendorID := uuid.New()
	missed := paidOrder(t, vendorID, 1, decimal.NewFromInt(1))
	gone := uuid.New()
	w := emptyWallet(t, vendorID)

	f.commissions.On("FindUncreditedOrderIDs", ctx, 25).Return([]uuid.UUID{gone, missed.ID}, nil)
	f.orders.On("FindByID", ctx, gone).Return(nil, shared.ErrNotFound)
	f.orders.On("FindByID", ctx, missed.ID).Return(missed, nil)
	f.commissions.On("FindByOrderID", ctx, missed.ID).Return(nil, shared.ErrNotFound)
	f.wallets.On("FindByVendorID", ctx, vendorID).Return(w, nil)
	f.payouts.On("CreditOrder", ctx, w, mock.MatchedBy(func(c *wallet.Commission) bool {
		return c.OrderID == missed.ID
	})).Return(nil)

	n, err := f.service.CreditMissed(ctx, 25)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, w.Pending.Equal(decimal.NewFromInt(100)))
}

func creditedWallet(t *testing.T, o *order.Order) (*wallet.Wallet, *wallet.Commission) {
	t.Helper()
	w := emptyWallet(t, o.VendorID)
	require.NoError(t, w.Credit(o.VendorPayout, o.ID, o.OrderNumber))
	w.ClearTransactions()
	w.ClearDomainEvents()
	c, err := wallet.NewCommission(o.ID, o.VendorID, o.CommissionRate, o.Subtotal, o.Commission, valueobject.USD)
	require.NoError(t, err)
	c.ClearDomainEvents()
	return w, c
}

func TestWalletService_ReleaseOrder(t *testing.T) {
	ctx := context.Background()
	anyTime := mock.AnythingOfType("time.Time")

	t.Run("moves pending to available and settles the commission", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)

		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.payouts.On("ReleaseOrder", ctx, o.ID, anyTime, w, c).Return(nil)

		require.NoError(t, f.service.ReleaseOrder(ctx, o))

		assert.True(t, w.Pending.IsZero())
		assert.True(t, w.Available.Equal(decimal.NewFromInt(100)))
		assert.True(t, o.PayoutReleased())
		assert.Equal(t, wallet.CommissionSettled, c.Status)

		// a second delivery notice changes nothing
		require.NoError(t, f.service.ReleaseOrder(ctx, o))
		f.payouts.AssertNumberOfCalls(t, "ReleaseOrder", 1)
		f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("claim already taken moves nothing", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)

		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.payouts.On("ReleaseOrder", ctx, o.ID, anyTime, w, c).Return(shared.ErrAlreadyExists).Once()

		require.NoError(t, f.service.ReleaseOrder(ctx, o))

		assert.Empty(t, f.publisher.events)
		f.wallets.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.commissions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("failed claim can be retried", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)

		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.payouts.On("ReleaseOrder", ctx, o.ID, anyTime, w, c).Return(assert.AnError).Once()

		assert.ErrorIs(t, f.service.ReleaseOrder(ctx, o), assert.AnError)
		assert.False(t, o.PayoutReleased())
	})

	t.Run("order without commission still releases", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, _ := creditedWallet(t, o)

		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)
		f.payouts.On("ReleaseOrder", ctx, o.ID, anyTime, w, (*wallet.Commission)(nil)).Return(nil)

		require.NoError(t, f.service.ReleaseOrder(ctx, o))
		assert.True(t, w.Available.Equal(decimal.NewFromInt(100)))
	})
}

// claimingStore lets one release per order through, the way the conditional
// update on payout_released_at does
type claimingStore struct {
	mu       sync.Mutex
	claimed  map[uuid.UUID]bool
	released decimal.Decimal
	wins     int
}

func (s *claimingStore) CreditOrder(context.Context, *wallet.Wallet, *wallet.Commission) error {
	return nil
}

func (s *claimingStore) ReverseOrder(context.Context, *wallet.Wallet, *wallet.Commission) error {
	return nil
}

func (s *claimingStore) ReleaseOrder(_ context.Context, orderID uuid.UUID, _ time.Time, w *wallet.Wallet, _ *wallet.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[orderID] {
		return shared.ErrAlreadyExists
	}
	s.claimed[orderID] = true
	s.wins++
	for _, tx := range w.Transactions() {
		if tx.Type == wallet.TransactionRelease {
			s.released = s.released.Add(tx.Amount)
		}
	}
	return nil
}

func TestWalletService_ReleaseOrder_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newWalletFixture()
	store := &claimingStore{claimed: map[uuid.UUID]bool{}, released: decimal.Zero}
	f.service = NewWalletService(f.wallets, f.commissions, store, f.orders, f.vendors, f.settings, zap.NewNop())

	// the delivery handler and the release job each hold their own copy
	o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
	copies := []*order.Order{o, func() *order.Order { dup := *o; return &dup }()}
	for range copies {
		w, c := creditedWallet(t, o)
		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil).Once()
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil).Once()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(copies))
	for i, held := range copies {
		wg.Add(1)
		go func(i int, o *order.Order) {
			defer wg.Done()
			errs[i] = f.service.ReleaseOrder(ctx, o)
		}(i, held)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.wins)
	assert.True(t, store.released.Equal(decimal.NewFromInt(100)), "payout moved once, got %s", store.released)
}

func TestWalletService_ReverseOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("held payout comes out of pending", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.payouts.On("ReverseOrder", ctx, w, c).Return(nil)

		require.NoError(t, f.service.ReverseOrder(ctx, o))

		assert.True(t, w.Pending.IsZero())
		assert.True(t, w.Available.IsZero())
		assert.Equal(t, wallet.CommissionReversed, c.Status)
		f.wallets.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.commissions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("released payout may push available negative", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)
		require.NoError(t, w.Release(o.VendorPayout, o.ID, ""))
		_, err := w.RequestPayout(decimal.NewFromInt(60), "bank")
		require.NoError(t, err)
		require.NoError(t, o.MarkPayoutReleased())

		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.payouts.On("ReverseOrder", ctx, w, c).Return(nil)

		require.NoError(t, f.service.ReverseOrder(ctx, o))

		assert.True(t, w.Available.Equal(decimal.NewFromInt(-60)))
	})

	t.Run("reversal that loses to a concurrent one moves nothing", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.payouts.On("ReverseOrder", ctx, w, c).Return(shared.ErrAlreadyExists).Once()

		require.NoError(t, f.service.ReverseOrder(ctx, o))

		assert.Empty(t, f.publisher.events)
		f.payouts.AssertExpectations(t)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		w, c := creditedWallet(t, o)
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(c, nil)
		f.wallets.On("FindByVendorID", ctx, o.VendorID).Return(w, nil)
		f.payouts.On("ReverseOrder", ctx, w, c).Return(assert.AnError)

		assert.ErrorIs(t, f.service.ReverseOrder(ctx, o), assert.AnError)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("uncredited orders are ignored", func(t *testing.T) {
		f := newWalletFixture()
		o := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
		f.commissions.On("FindByOrderID", ctx, o.ID).Return(nil, shared.ErrNotFound)

		require.NoError(t, f.service.ReverseOrder(ctx, o))

		f.wallets.AssertNotCalled(t, "FindByVendorID", mock.Anything, mock.Anything)
	})
}

func TestWalletService_ReleaseDue(t *testing.T) {
	ctx := context.Background()
	f := newWalletFixture()
	current := settings.Defaults()
	current.PayoutHoldDays = 3
	f.settings.On("Get", ctx).Return(current, nil)

	due := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
	broken := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
	w, c := creditedWallet(t, due)

	f.orders.On("FindReleasable", ctx, mock.MatchedBy(func(before time.Time) bool {
		return time.Since(before) > 71*time.Hour && time.Since(before) < 73*time.Hour
	}), 50).Return([]*order.Order{due, broken}, nil)
	f.wallets.On("FindByVendorID", ctx, due.VendorID).Return(w, nil)
	f.commissions.On("FindByOrderID", ctx, due.ID).Return(c, nil)
	f.payouts.On("ReleaseOrder", ctx, due.ID, mock.AnythingOfType("time.Time"), w, c).Return(nil)
	// the second vendor's wallet has nothing pending
	f.commissions.On("FindByOrderID", ctx, broken.ID).Return(nil, shared.ErrNotFound)
	f.wallets.On("FindByVendorID", ctx, broken.VendorID).Return(emptyWallet(t, broken.VendorID), nil)

	n, err := f.service.ReleaseDue(ctx, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, w.Available.Equal(decimal.NewFromInt(100)))
	assert.False(t, broken.PayoutReleased())
}

func TestWalletService_ReleaseDue_RefundedSinceListed(t *testing.T) {
	ctx := context.Background()
	f := newWalletFixture()
	f.settings.On("Get", ctx).Return(settings.Defaults(), nil)

	// listed while paid, refunded before the claim ran
	stale := paidOrder(t, uuid.New(), 1, decimal.NewFromInt(1))
	w, c := creditedWallet(t, stale)
	f.orders.On("FindReleasable", ctx, mock.AnythingOfType("time.Time"), 10).Return([]*order.Order{stale}, nil)
	f.wallets.On("FindByVendorID", ctx, stale.VendorID).Return(w, nil)
	f.commissions.On("FindByOrderID", ctx, stale.ID).Return(c, nil)
	f.payouts.On("ReleaseOrder", ctx, stale.ID, mock.AnythingOfType("time.Time"), w, c).
		Return(shared.NewDomainError("INVALID_STATE", "Cannot release the payout of a refunded order"))

	n, err := f.service.ReleaseDue(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, stale.PayoutReleased())
	assert.Empty(t, f.publisher.events)
}

func TestWalletService_RequestPayout(t *testing.T) {
	ctx := context.Background()

	newVendor := func(t *testing.T, payout vendor.PayoutDetails) *vendor.VendorProfile {
		v, err := vendor.Apply(uuid.New(), "Payout Store", "")
		require.NoError(t, err)
		v.Payout = payout
		return v
	}
	bank := vendor.PayoutDetails{Method: "bank", AccountName: "Store", AccountNumber: "123"}

	t.Run("debits available balance", func(t *testing.T) {
		f := newWalletFixture()
		v := newVendor(t, bank)
		w := emptyWallet(t, v.ID)
		w.Available = decimal.NewFromInt(80)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.wallets.On("FindByVendorID", ctx, v.ID).Return(w, nil)
		f.wallets.On("Save", ctx, w).Return(nil)

		resp, err := f.service.RequestPayout(ctx, v.ID, PayoutRequest{Amount: decimal.NewFromInt(30)})

		require.NoError(t, err)
		assert.Equal(t, "payout", resp.Type)
		assert.Equal(t, "bank", resp.Reference)
		assert.True(t, resp.AvailableAfter.Equal(decimal.NewFromInt(50)))
	})

	t.Run("more than available", func(t *testing.T) {
		f := newWalletFixture()
		v := newVendor(t, bank)
		w := emptyWallet(t, v.ID)
		w.Available = decimal.NewFromInt(10)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.wallets.On("FindByVendorID", ctx, v.ID).Return(w, nil)

		_, err := f.service.RequestPayout(ctx, v.ID, PayoutRequest{Amount: decimal.NewFromInt(30)})

		assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
		f.wallets.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing payout details", func(t *testing.T) {
		f := newWalletFixture()
		v := newVendor(t, vendor.PayoutDetails{})
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)

		_, err := f.service.RequestPayout(ctx, v.ID, PayoutRequest{Amount: decimal.NewFromInt(30)})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAYOUT_DETAILS_MISSING", domainErr.Code)
	})
}

func TestWalletService_Listings(t *testing.T) {
	ctx := context.Background()
	vendorID := uuid.New()

	t.Run("transactions", func(t *testing.T) {
		f := newWalletFixture()
		w := emptyWallet(t, vendorID)
		require.NoError(t, w.Credit(decimal.NewFromInt(5), uuid.New(), "ORD-1"))
		f.wallets.On("ListTransactions", ctx, vendorID, mock.MatchedBy(func(filter shared.Filter) bool {
			return filter.Page == 1 && filter.PageSize == 20 && filter.OrderDir == "desc"
		})).Return(w.Transactions(), int64(1), nil)

		page, err := f.service.ListTransactions(ctx, vendorID, ListTransactionsRequest{})

		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "credit", page.Items[0].Type)
	})

	t.Run("vendor commissions ignore a foreign vendor filter", func(t *testing.T) {
		f := newWalletFixture()
		f.commissions.On("FindAll", ctx, mock.MatchedBy(func(filter wallet.CommissionFilter) bool {
			return *filter.VendorID == vendorID && filter.Status == wallet.CommissionSettled
		})).Return([]wallet.Commission{}, int64(0), nil)

		_, err := f.service.ListCommissions(ctx, &vendorID, ListCommissionsRequest{Status: "settled", VendorID: uuid.NewString()})

		require.NoError(t, err)
	})

	t.Run("summary", func(t *testing.T) {
		f := newWalletFixture()
		f.commissions.On("Summary", ctx, (*uuid.UUID)(nil)).Return(wallet.CommissionSummary{
			Pending: decimal.NewFromInt(5), Settled: decimal.NewFromInt(20), Reversed: decimal.NewFromInt(3), Count: 4,
		}, nil)

		resp, err := f.service.CommissionSummary(ctx, nil)

		require.NoError(t, err)
		assert.True(t, resp.Earned.Equal(decimal.NewFromInt(25)))
	})
}
