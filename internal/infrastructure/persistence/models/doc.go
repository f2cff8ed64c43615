// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel, AggregateModel and the AutoMigrate list
//   - identity.go: profiles
//   - vendor.go: vendor_profiles
//   - catalog.go: products
//   - order.go: orders and order_items
//   - payment.go: payment_transactions
//   - wallet.go: wallets, wallet_transactions and commissions
//   - settings.go: marketplace_settings and currencies
//
// Value objects (addresses, payout details, image keys, metadata) are stored
// as JSON columns through GORM's json serializer.
package models
