package catalog

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the listing state of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// IsValid returns true for a known status
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

const (
	AggregateTypeProduct    = "Product"
	TopicProducts           = "products"
	EventTypeProductCreated = "product.created"
	EventTypeProductUpdated = "product.updated"
	EventTypeProductStock   = "product.stock_changed"
	EventTypeProductArchive = "product.archived"

	maxImages = 8
)

var (
	// ErrProductUnavailable is returned for products that cannot be bought
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")
	// ErrInsufficientStock is returned when stock cannot cover a reservation
	ErrInsufficientStock = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// Product is a vendor listing. BasePrice is the vendor's own price before
// platform commission and VAT.
type Product struct {
	shared.BaseAggregateRoot
	VendorID    uuid.UUID
	Name        string
	Description string
	Category    string
	BasePrice   decimal.Decimal
	Currency    valueobject.Currency
	Stock       int64
	Status      ProductStatus
	ImageKeys   []string
}

// NewProduct creates a draft product for a vendor
func NewProduct(vendorID uuid.UUID, name, description, category string, basePrice decimal.Decimal, currency valueobject.Currency, stock int64) (*Product, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VendorID:          vendorID,
		Currency:          currency,
		Status:            ProductStatusDraft,
	}
	if p.Currency == "" {
		p.Currency = valueobject.DefaultCurrency
	}
	if err := p.setDetails(name, description, category, basePrice); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.AddDomainEvent(NewProductEvent(EventTypeProductCreated, p))
	return p, nil
}

func (p *Product) setDetails(name, description, category string, basePrice decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if err := pricing.ValidateBasePrice(basePrice); err != nil {
		return err
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.Category = strings.ToLower(strings.TrimSpace(category))
	p.BasePrice = basePrice.Round(valueobject.CentPlaces)
	return nil
}

// Update changes listing details
func (p *Product) Update(name, description, category string, basePrice decimal.Decimal) error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Archived products cannot be edited")
	}
	if err := p.setDetails(name, description, category, basePrice); err != nil {
		return err
	}
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
	return nil
}

// Publish makes the product visible in the storefront
func (p *Product) Publish() error {
	if p.Status != ProductStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot publish product in %s status", p.Status))
	}
	p.Status = ProductStatusActive
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
	return nil
}

// Archive removes the product from sale
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Product is already archived")
	}
	p.Status = ProductStatusArchived
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductArchive, p))
	return nil
}

// IsPurchasable reports whether the product can be added to an order
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive
}

// Reserve takes quantity out of stock for an order
func (p *Product) Reserve(quantity int64) error {
	if !p.IsPurchasable() {
		return ErrProductUnavailable
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductStock, p))
	return nil
}

// Restock puts quantity back, e.g. when an unpaid order is cancelled
func (p *Product) Restock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Stock += quantity
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductStock, p))
	return nil
}

// SetStock overwrites the stock level
func (p *Product) SetStock(stock int64) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductStock, p))
	return nil
}

// ImageKeyPrefix is where this product's images live in object storage
func (p *Product) ImageKeyPrefix() string {
	return path.Join("products", p.VendorID.String(), p.ID.String())
}

// AddImage attaches an uploaded image key
func (p *Product) AddImage(key string) error {
	if !strings.HasPrefix(key, p.ImageKeyPrefix()+"/") {
		return shared.NewDomainError("INVALID_IMAGE", "Image does not belong to this product")
	}
	for _, k := range p.ImageKeys {
		if k == key {
			return nil
		}
	}
	if len(p.ImageKeys) >= maxImages {
		return shared.NewDomainError("TOO_MANY_IMAGES", fmt.Sprintf("A product can have at most %d images", maxImages))
	}
	p.ImageKeys = append(p.ImageKeys, key)
	p.Touch()
	p.AddDomainEvent(NewProductEvent(EventTypeProductUpdated, p))
	return nil
}

// Quote prices one unit with the given settings
func (p *Product) Quote(settings pricing.Settings) pricing.Breakdown {
	return pricing.Calculate(p.BasePrice, settings)
}

// ProductEvent carries product changes on the change feed
type ProductEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Status    ProductStatus   `json:"status"`
	Stock     int64           `json:"stock"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// NewProductEvent creates a ProductEvent. Products are public.
func NewProductEvent(eventType string, p *Product) *ProductEvent {
	return &ProductEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, TopicProducts, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Status:          p.Status,
		Stock:           p.Stock,
		BasePrice:       p.BasePrice,
	}
}
