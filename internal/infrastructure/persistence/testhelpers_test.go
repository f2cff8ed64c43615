package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with every marketplace table
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testAddress() valueobject.Address {
	return valueobject.Address{
		Recipient: "Tendai Moyo",
		Line1:     "12 Samora Machel Ave",
		City:      "Harare",
		Country:   "ZW",
	}
}

func activeTestProduct(t *testing.T, vendorID uuid.UUID, name string, price string, stock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(vendorID, name, "", "home", dec(price), valueobject.USD, stock)
	require.NoError(t, err)
	require.NoError(t, p.Publish())
	p.ClearDomainEvents()
	return p
}

// pendingOrder builds an unpaid order with one line at 10% commission, no VAT
func pendingOrder(t *testing.T, checkoutID, customerID uuid.UUID, p *catalog.Product, qty int64) *order.Order {
	t.Helper()
	o, err := order.NewOrder(checkoutID, customerID, p.VendorID, valueobject.USD, decimal.NewFromInt(1), testAddress())
	require.NoError(t, err)

	unit := pricing.Calculate(p.BasePrice, pricing.Settings{CommissionEnabled: true, CommissionRate: decimal.NewFromInt(10)})
	line := unit.Scale(qty)
	item, err := order.NewItem(p.ID, p.Name, qty, unit, line, "default")
	require.NoError(t, err)
	require.NoError(t, o.AddItem(item))
	require.NoError(t, o.SetShipping(dec("5")))
	require.NoError(t, o.Place("paypal"))
	o.ClearDomainEvents()
	return o
}
