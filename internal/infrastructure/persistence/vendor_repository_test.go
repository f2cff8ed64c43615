package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormVendorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormVendorRepository(newTestDB(t))

	crafts, err := vendor.Apply(uuid.New(), "Mbare Crafts", "Baskets and pottery")
	require.NoError(t, err)
	require.NoError(t, crafts.Approve())
	require.NoError(t, crafts.UpdateStore("Mbare Crafts", "Baskets and pottery", &vendor.PayoutDetails{
		Method: "ecocash", AccountName: "T Moyo", AccountNumber: "0771000001",
	}))
	books, err := vendor.Apply(uuid.New(), "Kopje Books", "")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, crafts))
	require.NoError(t, repo.Save(ctx, books))

	t.Run("lookups", func(t *testing.T) {
		bySlug, err := repo.FindBySlug(ctx, "mbare-crafts")
		require.NoError(t, err)
		assert.Equal(t, crafts.ID, bySlug.ID)
		assert.Equal(t, "ecocash", bySlug.Payout.Method)
		assert.NotNil(t, bySlug.ApprovedAt)

		byUser, err := repo.FindByUserID(ctx, books.UserID)
		require.NoError(t, err)
		assert.Equal(t, vendor.StatusPending, byUser.Status)

		_, err = repo.FindByUserID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		many, err := repo.FindByIDs(ctx, []uuid.UUID{crafts.ID, books.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, many, 2)
	})

	t.Run("slug uniqueness excludes the vendor itself", func(t *testing.T) {
		taken, err := repo.ExistsBySlug(ctx, "mbare-crafts", uuid.Nil)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.ExistsBySlug(ctx, "mbare-crafts", crafts.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("status filter and count", func(t *testing.T) {
		pending, total, err := repo.FindAll(ctx, shared.Filter{Filters: map[string]interface{}{"status": "pending"}}.Normalize())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, pending, 1)
		assert.Equal(t, books.ID, pending[0].ID)

		approved, err := repo.CountByStatus(ctx, vendor.StatusApproved)
		require.NoError(t, err)
		assert.Equal(t, int64(1), approved)

		_, total, err = repo.FindAll(ctx, shared.Filter{Search: "KOPJE"}.Normalize())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}
