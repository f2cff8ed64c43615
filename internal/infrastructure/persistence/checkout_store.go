package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCheckoutStore implements order.CheckoutStore. Stock is reserved with
// conditional decrements so concurrent checkouts can never oversell.
type GormCheckoutStore struct {
	db *gorm.DB
}

// NewGormCheckoutStore creates a new GormCheckoutStore
func NewGormCheckoutStore(db *gorm.DB) *GormCheckoutStore {
	return &GormCheckoutStore{db: db}
}

// Place reserves stock for every line, then inserts the orders and the
// payment transaction. Any short product rolls the whole checkout back.
func (s *GormCheckoutStore) Place(ctx context.Context, orders []*order.Order, txn *payment.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, o := range orders {
			for _, item := range o.Items {
				if err := reserveStock(tx, item, now); err != nil {
					return err
				}
			}
		}

		for _, o := range orders {
			if err := tx.Create(models.OrderModelFromDomain(o)).Error; err != nil {
				return fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
			}
		}
		if err := tx.Create(models.PaymentTransactionModelFromDomain(txn)).Error; err != nil {
			return fmt.Errorf("insert payment transaction: %w", err)
		}
		return nil
	})
}

// Release saves cancelled orders and puts their stock back
func (s *GormCheckoutStore) Release(ctx context.Context, orders []*order.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, o := range orders {
			if err := updateOrderWithLock(tx, o); err != nil {
				return fmt.Errorf("save order %s: %w", o.OrderNumber, err)
			}
			for productID, qty := range o.Quantities() {
				if err := restoreStock(tx, productID, qty, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Settle writes the completed transaction and the orders it moved, returning
// stock for orders it cancelled
func (s *GormCheckoutStore) Settle(ctx context.Context, txn *payment.Transaction, orders []*order.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, o := range orders {
			if err := updateOrderWithLock(tx, o); err != nil {
				return fmt.Errorf("save order %s: %w", o.OrderNumber, err)
			}
			if o.Status != order.StatusCancelled {
				continue
			}
			for productID, qty := range o.Quantities() {
				if err := restoreStock(tx, productID, qty, now); err != nil {
					return err
				}
			}
		}
		return completeTransaction(tx, txn)
	})
}

// completeTransaction writes txn only while the stored row is in a state its
// new status completes from
func completeTransaction(tx *gorm.DB, txn *payment.Transaction) error {
	from := txn.Status.CompletesFrom()
	if len(from) == 0 {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Payment %s is not complete", txn.Reference))
	}
	model := models.PaymentTransactionModelFromDomain(txn)
	model.Version = txn.Version + 1
	model.UpdatedAt = time.Now()

	result := tx.Model(&models.PaymentTransactionModel{}).
		Where("id = ? AND status IN ?", txn.ID, from).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("save payment transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	txn.Version = model.Version
	txn.UpdatedAt = model.UpdatedAt
	return nil
}

func reserveStock(tx *gorm.DB, item order.Item, now time.Time) error {
	result := tx.Model(&models.ProductModel{}).
		Where("id = ? AND status = ? AND stock >= ?", item.ProductID, catalog.ProductStatusActive, item.Quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", item.Quantity),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(catalog.ErrInsufficientStock.Code,
			fmt.Sprintf("Only limited stock left for %s", item.ProductName))
	}
	return nil
}

func restoreStock(tx *gorm.DB, productID uuid.UUID, qty int64, now time.Time) error {
	return tx.Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}).Error
}

// Ensure GormCheckoutStore implements order.CheckoutStore
var _ order.CheckoutStore = (*GormCheckoutStore)(nil)
