package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCommissionRepository implements wallet.CommissionRepository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// FindByOrderID finds the commission recorded for an order
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*wallet.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists commissions, optionally for one vendor or status
func (r *GormCommissionRepository) FindAll(ctx context.Context, filter wallet.CommissionFilter) ([]wallet.Commission, int64, error) {
	query := r.scope(r.db.WithContext(ctx).Model(&models.CommissionModel{}), filter.VendorID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.CommissionModel
	if err := paginate(query, filter.Filter, CommissionSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]wallet.Commission, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Save creates or updates a commission
func (r *GormCommissionRepository) Save(ctx context.Context, c *wallet.Commission) error {
	return r.db.WithContext(ctx).Save(models.CommissionModelFromDomain(c)).Error
}

// FindUncreditedOrderIDs lists paid orders with no commission, oldest first
func (r *GormCommissionRepository) FindUncreditedOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("status IN ?", []order.Status{order.StatusPaid, order.StatusProcessing, order.StatusShipped, order.StatusDelivered}).
		Where("NOT EXISTS (SELECT 1 FROM commissions c WHERE c.order_id = orders.id)").
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// Summary totals commission amounts by status
func (r *GormCommissionRepository) Summary(ctx context.Context, vendorID *uuid.UUID) (wallet.CommissionSummary, error) {
	var rows []struct {
		Status wallet.CommissionStatus
		Amount decimal.NullDecimal
		Count  int64
	}
	err := r.scope(r.db.WithContext(ctx).Model(&models.CommissionModel{}), vendorID).
		Select("status, SUM(amount) AS amount, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return wallet.CommissionSummary{}, err
	}

	summary := wallet.CommissionSummary{
		Pending:  decimal.Zero,
		Settled:  decimal.Zero,
		Reversed: decimal.Zero,
	}
	for _, row := range rows {
		amount := row.Amount.Decimal.Round(2)
		switch row.Status {
		case wallet.CommissionPending:
			summary.Pending = amount
		case wallet.CommissionSettled:
			summary.Settled = amount
		case wallet.CommissionReversed:
			summary.Reversed = amount
		}
		summary.Count += row.Count
	}
	return summary, nil
}

func (r *GormCommissionRepository) scope(query *gorm.DB, vendorID *uuid.UUID) *gorm.DB {
	if vendorID != nil {
		return query.Where("vendor_id = ?", *vendorID)
	}
	return query
}

// Ensure GormCommissionRepository implements wallet.CommissionRepository
var _ wallet.CommissionRepository = (*GormCommissionRepository)(nil)
