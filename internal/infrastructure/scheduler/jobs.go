package scheduler

import (
	"context"
	"time"
)

// Job names
const (
	JobPaymentPoll   = "payment_poll"
	JobPayoutRelease = "payout_release"
	JobStaleOrders   = "stale_orders"
	JobWalletCredit  = "wallet_credit"
)

// PaymentPoller re-queries gateways for transactions still pending
type PaymentPoller interface {
	PollPending(ctx context.Context, limit int) (int, error)
}

// PayoutReleaser settles commissions past the hold period
type PayoutReleaser interface {
	ReleaseDue(ctx context.Context, limit int) (int, error)
}

// WalletCreditor credits paid orders the payment flow failed to credit
type WalletCreditor interface {
	CreditMissed(ctx context.Context, limit int) (int, error)
}

// StaleOrderExpirer cancels unpaid orders and restores their stock
type StaleOrderExpirer interface {
	ExpireStale(ctx context.Context, maxAge time.Duration, limit int) (int, error)
}

// MarketplaceJobs configures the recurring marketplace maintenance
type MarketplaceJobs struct {
	PaymentPollSchedule   string
	PayoutReleaseSchedule string
	StaleOrderSchedule    string
	WalletCreditSchedule  string
	StaleOrderAfter       time.Duration
	BatchSize             int

	Payments PaymentPoller
	Payouts  PayoutReleaser
	Orders   StaleOrderExpirer
	Credits  WalletCreditor
}

// RegisterMarketplaceJobs adds the recurring marketplace jobs. A job whose dependency is nil is not registered.
func RegisterMarketplaceJobs(s *Scheduler, jobs MarketplaceJobs) error {
	batch := jobs.BatchSize
	if batch <= 0 {
		batch = 100
	}

	if jobs.Payments != nil {
		if err := s.Register(JobPaymentPoll, jobs.PaymentPollSchedule, func(ctx context.Context) (int, error) {
			return jobs.Payments.PollPending(ctx, batch)
		}); err != nil {
			return err
		}
	}
	if jobs.Payouts != nil {
		if err := s.Register(JobPayoutRelease, jobs.PayoutReleaseSchedule, func(ctx context.Context) (int, error) {
			return jobs.Payouts.ReleaseDue(ctx, batch)
		}); err != nil {
			return err
		}
	}
	if jobs.Orders != nil {
		if jobs.StaleOrderAfter <= 0 {
			return ErrInvalidConfig
		}
		if err := s.Register(JobStaleOrders, jobs.StaleOrderSchedule, func(ctx context.Context) (int, error) {
			return jobs.Orders.ExpireStale(ctx, jobs.StaleOrderAfter, batch)
		}); err != nil {
			return err
		}
	}
	if jobs.Credits != nil {
		if err := s.Register(JobWalletCredit, jobs.WalletCreditSchedule, func(ctx context.Context) (int, error) {
			return jobs.Credits.CreditMissed(ctx, batch)
		}); err != nil {
			return err
		}
	}
	return nil
}
