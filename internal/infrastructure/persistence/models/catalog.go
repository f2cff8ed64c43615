package models

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	VendorID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Name        string                `gorm:"type:varchar(200);not null"`
	Description string                `gorm:"type:text"`
	Category    string                `gorm:"type:varchar(100);index"`
	BasePrice   decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency    string                `gorm:"type:varchar(3);not null;default:'USD'"`
	Stock       int64                 `gorm:"not null;default:0"`
	Status      catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	ImageKeys   []string              `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	images := m.ImageKeys
	if images == nil {
		images = []string{}
	}
	return &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		VendorID:          m.VendorID,
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		BasePrice:         m.BasePrice,
		Currency:          valueobject.Currency(m.Currency),
		Stock:             m.Stock,
		Status:            m.Status,
		ImageKeys:         images,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		BasePrice:   p.BasePrice,
		Currency:    p.Currency.String(),
		Stock:       p.Stock,
		Status:      p.Status,
		ImageKeys:   p.ImageKeys,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
