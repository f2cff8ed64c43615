package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Category    string          `json:"category" binding:"max=100"`
	BasePrice   decimal.Decimal `json:"base_price" binding:"required"`
	Stock       int64           `json:"stock" binding:"min=0"`
	Publish     bool            `json:"publish"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	Stock       *int64           `json:"stock" binding:"omitempty,min=0"`
	Publish     *bool            `json:"publish"`
}

// ListProductsRequest filters product listings
type ListProductsRequest struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string     `form:"search"`
	Category string     `form:"category"`
	Status   string     `form:"status" binding:"omitempty,oneof=draft active archived"`
	VendorID *uuid.UUID `form:"vendor_id"`
}

// ImageUploadRequest asks for a presigned upload URL
type ImageUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=200"`
	ContentType string `json:"content_type" binding:"required"`
}

// ImageUploadResponse carries the presigned PUT URL
type ImageUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmImageRequest attaches an uploaded object to a product
type ConfirmImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// QuoteResponse is the customer-facing price breakdown of one unit
type QuoteResponse struct {
	ProductID           uuid.UUID       `json:"product_id"`
	Currency            string          `json:"currency"`
	BasePrice           decimal.Decimal `json:"base_price"`
	Commission          decimal.Decimal `json:"commission"`
	PriceWithCommission decimal.Decimal `json:"price_with_commission"`
	VAT                 decimal.Decimal `json:"vat"`
	Total               decimal.Decimal `json:"total"`
	PricingStrategy     string          `json:"pricing_strategy"`
}

// ProductResponse represents a product in API responses. Price is the
// storefront display price, i.e. the quoted total.
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int64           `json:"stock"`
	Status      string          `json:"status"`
	ImageKeys   []string        `json:"image_keys"`
	ImageURLs   []string        `json:"image_urls,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// ToProductResponse converts a domain product with its display price
func ToProductResponse(p *catalog.Product, quote pricing.Breakdown) ProductResponse {
	keys := p.ImageKeys
	if keys == nil {
		keys = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		BasePrice:   p.BasePrice,
		Price:       quote.Round().Total,
		Currency:    p.Currency.String(),
		Stock:       p.Stock,
		Status:      string(p.Status),
		ImageKeys:   keys,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// ToQuoteResponse converts a unit breakdown
func ToQuoteResponse(productID uuid.UUID, currency string, b pricing.Breakdown, strategyName string) QuoteResponse {
	b = b.Round()
	return QuoteResponse{
		ProductID:           productID,
		Currency:            currency,
		BasePrice:           b.BasePrice,
		Commission:          b.Commission,
		PriceWithCommission: b.PriceWithCommission,
		VAT:                 b.VAT,
		Total:               b.Total,
		PricingStrategy:     strategyName,
	}
}
