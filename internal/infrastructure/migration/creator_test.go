package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/marketplace/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add wallets", "add_wallets"},
		{"Add-Vendor-Payouts", "add_vendor_payouts"},
		{"  spaced  out  ", "spaced_out"},
		{"orders!@#v2", "ordersv2"},
		{"___", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add payout holds", "Hold vendor payouts for a few days")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)
	assert.Equal(t, "000001_add_payout_holds.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_payout_holds.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add_payout_holds")
	assert.Contains(t, string(up), "Hold vendor payouts for a few days")
	assert.NotContains(t, string(up), "Rollback")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "index wallets", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Version)
	assert.True(t, strings.HasPrefix(filepath.Base(second.UpPath), "000002_"))

	t.Run("unusable name", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})

	t.Run("creates nested directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "db", "migrations")
		mf, err := CreateMigration(nested, "init", "")
		require.NoError(t, err)
		assert.EqualValues(t, 1, mf.Version)
	})
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_wallets.up.sql":   {Data: []byte("--")},
		"000002_add_wallets.down.sql": {Data: []byte("--")},
		"000001_init.up.sql":          {Data: []byte("--")},
		"000001_init.down.sql":        {Data: []byte("--")},
		"README.md":                   {Data: []byte("docs")},
		"notes.up.sql":                {Data: []byte("--")},
		"subdir.up.sql/keep":          {Data: []byte("")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "000001_init", list[0].String())
	assert.Equal(t, "000002_add_wallets", list[1].String())
}

func TestListMigrations_Missing(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i, m := range list {
		assert.EqualValues(t, i+1, m.Version, "embedded migrations must be contiguous")
		_, err := migrations.FS.Open(m.String() + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", m)
	}
}
