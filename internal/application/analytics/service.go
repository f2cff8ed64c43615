package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/domain/wallet"
	"go.uber.org/zap"
)

// VisitCounter counts unique sessions per day
type VisitCounter interface {
	// RecordVisit counts the session once for the given day and reports
	// whether this call was the first
	RecordVisit(ctx context.Context, day, sessionID string) (bool, error)
	// Visits returns the number of sessions counted for the day
	Visits(ctx context.Context, day string) (int64, error)
}

// AnalyticsService records storefront visits and builds the admin dashboard
type AnalyticsService struct {
	orderRepo      order.Repository
	vendorRepo     vendor.Repository
	commissionRepo wallet.CommissionRepository
	settingsRepo   settings.Repository
	visits         VisitCounter
	logger         *zap.Logger
	now            func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	orderRepo order.Repository,
	vendorRepo vendor.Repository,
	commissionRepo wallet.CommissionRepository,
	settingsRepo settings.Repository,
	visits VisitCounter,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		orderRepo:      orderRepo,
		vendorRepo:     vendorRepo,
		commissionRepo: commissionRepo,
		settingsRepo:   settingsRepo,
		visits:         visits,
		logger:         logger,
		now:            time.Now,
	}
}

// RecordVisit counts a storefront session at most once per UTC day
func (s *AnalyticsService) RecordVisit(ctx context.Context, req RecordVisitRequest) (*RecordVisitResponse, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return &RecordVisitResponse{}, nil
	}
	counted, err := s.visits.RecordVisit(ctx, dayKey(s.now()), sessionID)
	if err != nil {
		// visits are best effort; the storefront never fails on them
		s.logger.Warn("failed to record visit", zap.String("path", req.Path), zap.Error(err))
		return &RecordVisitResponse{}, nil
	}
	return &RecordVisitResponse{Counted: counted}, nil
}

// Dashboard aggregates sales, commission and traffic for admins
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	totals, err := s.orderRepo.PaidTotals(ctx)
	if err != nil {
		return nil, err
	}
	commissions, err := s.commissionRepo.Summary(ctx, nil)
	if err != nil {
		return nil, err
	}
	active, err := s.vendorRepo.CountByStatus(ctx, vendor.StatusApproved)
	if err != nil {
		return nil, err
	}
	pending, err := s.vendorRepo.CountByStatus(ctx, vendor.StatusPending)
	if err != nil {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visits, err := s.visits.Visits(ctx, dayKey(now))
	if err != nil {
		s.logger.Warn("failed to read visit count", zap.Error(err))
		visits = 0
	}

	return &DashboardResponse{
		Orders:           totals.Orders,
		GrossValue:       totals.GrossValue,
		CommissionEarned: commissions.Earned(),
		VATCollected:     totals.VAT,
		ActiveVendors:    active,
		PendingVendors:   pending,
		VisitsToday:      visits,
		Currency:         current.DefaultCurrency.String(),
		GeneratedAt:      now,
	}, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
