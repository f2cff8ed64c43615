package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPayoutStore implements wallet.PayoutStore using GORM
type GormPayoutStore struct {
	db *gorm.DB
}

// NewGormPayoutStore creates a new GormPayoutStore
func NewGormPayoutStore(db *gorm.DB) *GormPayoutStore {
	return &GormPayoutStore{db: db}
}

// CreditOrder inserts the order's commission first so a second credit for
// the same order stops before any balance moves
func (s *GormPayoutStore) CreditOrder(ctx context.Context, w *wallet.Wallet, c *wallet.Commission) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CommissionModel{}).Where("order_id = ?", c.OrderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrAlreadyExists
		}
		if err := tx.Create(models.CommissionModelFromDomain(c)).Error; err != nil {
			return err
		}
		return saveWallet(tx, w)
	})
	if err != nil {
		return err
	}
	w.ClearTransactions()
	return nil
}

// ReleaseOrder stamps payout_released_at only where it is still empty and
// the order still holds captured money, and moves money only when that claim
// wins
func (s *GormPayoutStore) ReleaseOrder(ctx context.Context, orderID uuid.UUID, releasedAt time.Time, w *wallet.Wallet, c *wallet.Commission) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND payout_released_at IS NULL AND status IN ?", orderID, paidStatuses).
			Updates(map[string]interface{}{
				"payout_released_at": releasedAt,
				"version":            gorm.Expr("version + 1"),
				"updated_at":         time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return releaseClaimError(tx, orderID)
		}

		if w != nil {
			if err := saveWallet(tx, w); err != nil {
				return err
			}
		}
		if c != nil {
			return settleCommission(tx, c)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if w != nil {
		w.ClearTransactions()
	}
	return nil
}

// ReverseOrder marks the order's commission reversed first, so a second
// reversal stops before any balance moves, then saves the wallet. The wallet
// may be nil when there is nothing to take back.
func (s *GormPayoutStore) ReverseOrder(ctx context.Context, w *wallet.Wallet, c *wallet.Commission) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CommissionModel{}).
			Where("order_id = ? AND status <> ?", c.OrderID, wallet.CommissionReversed).
			Updates(map[string]interface{}{
				"status":     wallet.CommissionReversed,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.CommissionModel{}).Where("order_id = ?", c.OrderID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrAlreadyExists
		}
		if w != nil {
			return saveWallet(tx, w)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if w != nil {
		w.ClearTransactions()
	}
	return nil
}

// settleCommission settles a commission that is still pending; a reversed
// one is left alone
func settleCommission(tx *gorm.DB, c *wallet.Commission) error {
	return tx.Model(&models.CommissionModel{}).
		Where("order_id = ? AND status = ?", c.OrderID, wallet.CommissionPending).
		Updates(map[string]interface{}{
			"status":     c.Status,
			"settled_at": c.SettledAt,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
}

// releaseClaimError explains why a payout claim matched no row
func releaseClaimError(tx *gorm.DB, orderID uuid.UUID) error {
	var row struct {
		Status           order.Status
		PayoutReleasedAt *time.Time
	}
	err := tx.Model(&models.OrderModel{}).
		Select("status, payout_released_at").
		Where("id = ?", orderID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if err != nil {
		return err
	}
	if row.PayoutReleasedAt != nil {
		return shared.ErrAlreadyExists
	}
	return shared.NewDomainError(shared.ErrInvalidState.Code,
		fmt.Sprintf("Cannot release the payout of a %s order", row.Status))
}

// Ensure GormPayoutStore implements wallet.PayoutStore
var _ wallet.PayoutStore = (*GormPayoutStore)(nil)
