package persistence

import "gorm.io/gorm"

// Repositories bundles every GORM repository over one connection
type Repositories struct {
	Profiles    *GormProfileRepository
	Vendors     *GormVendorRepository
	Products    *GormProductRepository
	Orders      *GormOrderRepository
	Payments    *GormPaymentTransactionRepository
	Wallets     *GormWalletRepository
	Commissions *GormCommissionRepository
	Settings    *GormSettingsRepository
	Checkout    *GormCheckoutStore
	Payouts     *GormPayoutStore
}

// NewRepositories creates all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profiles:    NewGormProfileRepository(db),
		Vendors:     NewGormVendorRepository(db),
		Products:    NewGormProductRepository(db),
		Orders:      NewGormOrderRepository(db),
		Payments:    NewGormPaymentTransactionRepository(db),
		Wallets:     NewGormWalletRepository(db),
		Commissions: NewGormCommissionRepository(db),
		Settings:    NewGormSettingsRepository(db),
		Checkout:    NewGormCheckoutStore(db),
		Payouts:     NewGormPayoutStore(db),
	}
}
