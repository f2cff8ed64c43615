package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepository_OptimisticLocking(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := tdb.Repos.Wallets

	v := tdb.CreateApprovedVendor("Tsoka Textiles")
	w, err := wallet.NewWallet(v.ID, valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, w))

	first, err := repo.FindByVendorID(ctx, v.ID)
	require.NoError(t, err)
	second, err := repo.FindByVendorID(ctx, v.ID)
	require.NoError(t, err)

	require.NoError(t, first.Credit(decimal.RequireFromString("18.00"), uuid.New(), "MKT-1"))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.Credit(decimal.RequireFromString("7.50"), uuid.New(), "MKT-2"))
	assert.ErrorIs(t, repo.Save(ctx, second), shared.ErrConcurrencyConflict)

	stored, err := repo.FindByVendorID(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("18").Equal(stored.Pending))

	txns, total, err := repo.ListTransactions(ctx, v.ID, shared.Filter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txns, 1)
	assert.Equal(t, "MKT-1", txns[0].Reference)
}

func TestWalletRepository_ReleaseAndPayout(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := tdb.Repos.Wallets

	v := tdb.CreateApprovedVendor("Gwanda Leather")
	w, err := wallet.NewWallet(v.ID, valueobject.USD)
	require.NoError(t, err)
	orderID := uuid.New()
	require.NoError(t, w.Credit(decimal.RequireFromString("40.00"), orderID, "MKT-9"))
	require.NoError(t, w.Release(decimal.RequireFromString("40.00"), orderID, "MKT-9"))
	_, err = w.RequestPayout(decimal.RequireFromString("25.00"), "PAYOUT-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, w))

	stored, err := repo.FindByVendorID(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15").Equal(stored.Available))
	assert.True(t, stored.Pending.IsZero())

	_, total, err := repo.ListTransactions(ctx, v.ID, shared.Filter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
