package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// paidStatuses are the states an order reaches once money was captured
var paidStatuses = []order.Status{
	order.StatusPaid,
	order.StatusProcessing,
	order.StatusShipped,
	order.StatusDelivered,
}

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCheckoutID finds every vendor order of one checkout
func (r *GormOrderRepository) FindByCheckoutID(ctx context.Context, checkoutID uuid.UUID) ([]*order.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("checkout_id = ?", checkoutID).
		Order("order_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrderPointers(rows), nil
}

// FindAll lists orders for a customer, a vendor or everyone
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where(`LOWER(order_number) LIKE ? ESCAPE '\'`, likePattern(filter.Search))
	}
	if t, ok := filter.Filters["start_date"].(time.Time); ok {
		query = query.Where("created_at >= ?", t)
	}
	if t, ok := filter.Filters["end_date"].(time.Time); ok {
		query = query.Where("created_at <= ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.OrderModel
	if err := paginate(query.Preload("Items"), filter.Filter, OrderSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]order.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// FindStalePending returns unpaid orders created before the cutoff, oldest first
func (r *GormOrderRepository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", order.StatusPendingPayment, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrderPointers(rows), nil
}

// FindReleasable returns paid orders whose payout is still held and that
// were delivered, or paid before the cutoff
func (r *GormOrderRepository) FindReleasable(ctx context.Context, before time.Time, limit int) ([]*order.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("payout_released_at IS NULL AND status IN ?", paidStatuses).
		Where("status = ? OR paid_at < ?", order.StatusDelivered, before).
		Order("paid_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toOrderPointers(rows), nil
}

// Save creates or updates an order and replaces its items
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}
		return saveOrderItems(tx, o.ID, model.Items)
	})
}

// SaveWithLock updates an order with optimistic locking (version check).
// Items are fixed once an order is placed and are not rewritten.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateOrderWithLock(tx, o)
	})
}

// PaidTotals sums orders that reached payment. Amounts are converted back to
// the default currency through each order's exchange rate.
func (r *GormOrderRepository) PaidTotals(ctx context.Context) (order.Totals, error) {
	var row struct {
		Orders     int64
		GrossValue decimal.NullDecimal
		Commission decimal.NullDecimal
		VAT        decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COUNT(*) AS orders, "+
			"SUM(total / exchange_rate) AS gross_value, "+
			"SUM(commission / exchange_rate) AS commission, "+
			"SUM(vat / exchange_rate) AS vat").
		Where("status IN ?", paidStatuses).
		Scan(&row).Error
	if err != nil {
		return order.Totals{}, err
	}
	return order.Totals{
		Orders:     row.Orders,
		GrossValue: row.GrossValue.Decimal.Round(2),
		Commission: row.Commission.Decimal.Round(2),
		VAT:        row.VAT.Decimal.Round(2),
	}, nil
}

// updateOrderWithLock writes the order row only if its version is unchanged
func updateOrderWithLock(tx *gorm.DB, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	currentVersion := o.Version
	model.Version = currentVersion + 1
	model.UpdatedAt = time.Now()

	result := tx.Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, currentVersion).
		Select("*").Omit("id", "created_at", "Items").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.OrderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	o.Version = model.Version
	o.UpdatedAt = model.UpdatedAt
	return nil
}

func saveOrderItems(tx *gorm.DB, orderID uuid.UUID, items []models.OrderItemModel) error {
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	stale := tx.Where("order_id = ?", orderID)
	if len(ids) > 0 {
		stale = stale.Where("id NOT IN ?", ids)
	}
	if err := stale.Delete(&models.OrderItemModel{}).Error; err != nil {
		return err
	}
	for i := range items {
		if err := tx.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func toOrderPointers(rows []models.OrderModel) []*order.Order {
	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
