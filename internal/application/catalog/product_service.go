package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/pricing"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/vendor"
	"go.uber.org/zap"
)

// PricingStrategyGetter resolves pricing strategies by name
type PricingStrategyGetter interface {
	GetPricingStrategy(name string) (strategy.PricingStrategy, error)
}

// ObjectStorage issues presigned URLs for product images
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	DeleteObject(ctx context.Context, storageKey string) error
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProductService handles vendor listings and storefront quotes
type ProductService struct {
	productRepo  catalog.ProductRepository
	vendorRepo   vendor.Repository
	settingsRepo settings.Repository
	strategies   PricingStrategyGetter
	storage      ObjectStorage
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	vendorRepo vendor.Repository,
	settingsRepo settings.Repository,
	strategies PricingStrategyGetter,
	storage ObjectStorage,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		vendorRepo:   vendorRepo,
		settingsRepo: settingsRepo,
		strategies:   strategies,
		storage:      storage,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher used for the change feed
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a product for an approved vendor
func (s *ProductService) Create(ctx context.Context, vendorID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	v, err := s.approvedVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(v.ID, req.Name, req.Description, req.Category, req.BasePrice, current.DefaultCurrency, req.Stock)
	if err != nil {
		return nil, err
	}
	if req.Publish {
		if err := product.Publish(); err != nil {
			return nil, err
		}
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("vendor_id", v.ID.String()))
	s.publish(ctx, product)
	return s.respond(ctx, product, v, current)
}

// Update edits a product owned by the vendor
func (s *ProductService) Update(ctx context.Context, vendorID, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	v, err := s.approvedVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	name, description, category, basePrice := product.Name, product.Description, product.Category, product.BasePrice
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.Category != nil {
		category = *req.Category
	}
	if req.BasePrice != nil {
		basePrice = *req.BasePrice
	}
	if err := product.Update(name, description, category, basePrice); err != nil {
		return nil, err
	}
	if req.Stock != nil {
		if err := product.SetStock(*req.Stock); err != nil {
			return nil, err
		}
	}
	if req.Publish != nil && *req.Publish && product.Status == catalog.ProductStatusDraft {
		if err := product.Publish(); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, product, v, current)
}

// Archive removes a product from the storefront
func (s *ProductService) Archive(ctx context.Context, vendorID, productID uuid.UUID) error {
	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return err
	}
	if err := product.Archive(); err != nil {
		return err
	}
	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		return err
	}
	s.publish(ctx, product)
	return nil
}

// Get returns a product with its display price and image URLs
func (s *ProductService) Get(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, err := s.vendorRepo.FindByID(ctx, product.VendorID)
	if err != nil {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.respond(ctx, product, v, current)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		for _, key := range product.ImageKeys {
			url, _, err := s.storage.GenerateDownloadURL(ctx, key, 0)
			if err != nil {
				s.logger.Warn("Failed to sign image URL", zap.String("key", key), zap.Error(err))
				continue
			}
			resp.ImageURLs = append(resp.ImageURLs, url)
		}
	}
	return resp, nil
}

// List returns products matching the filter with display prices
func (s *ProductService) List(ctx context.Context, req ListProductsRequest) (shared.Paginated[ProductResponse], error) {
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   strings.TrimSpace(req.Search),
		}.Normalize("created_at", "name", "base_price", "stock"),
		VendorID: req.VendorID,
		Category: req.Category,
		Status:   catalog.ProductStatus(req.Status),
	}

	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	vendors, err := s.vendorsOf(ctx, products)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		quote, _, err := s.quote(ctx, &products[i], vendors[products[i].VendorID], current.Pricing())
		if err != nil {
			return shared.Paginated[ProductResponse]{}, err
		}
		items = append(items, ToProductResponse(&products[i], quote))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Quote returns the price breakdown the storefront shows for one unit,
// optionally converted into a display currency
func (s *ProductService) Quote(ctx context.Context, productID uuid.UUID, currency string) (*QuoteResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, err := s.vendorRepo.FindByID(ctx, product.VendorID)
	if err != nil {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	unit, strategyName, err := s.quote(ctx, product, v, current.Pricing())
	if err != nil {
		return nil, err
	}

	target := product.Currency
	if currency != "" {
		target, err = valueobject.ParseCurrency(currency)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
		}
	}
	if target != product.Currency {
		currencies, err := s.settingsRepo.ListCurrencies(ctx, true)
		if err != nil {
			return nil, err
		}
		rate, err := settings.NewRateTable(current.DefaultCurrency, currencies).Rate(product.Currency, target)
		if err != nil {
			return nil, err
		}
		unit = pricing.Breakdown{
			BasePrice:           unit.BasePrice.Mul(rate),
			Commission:          unit.Commission.Mul(rate),
			PriceWithCommission: unit.PriceWithCommission.Mul(rate),
			VAT:                 unit.VAT.Mul(rate),
			Total:               unit.Total.Mul(rate),
		}
	}

	resp := ToQuoteResponse(product.ID, target.String(), unit, strategyName)
	return &resp, nil
}

// RequestImageUpload returns a presigned PUT URL for a new product image
func (s *ProductService) RequestImageUpload(ctx context.Context, vendorID, productID uuid.UUID, req ImageUploadRequest) (*ImageUploadResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Image uploads are not configured")
	}
	ext, ok := allowedImageTypes[strings.ToLower(req.ContentType)]
	if !ok {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE", fmt.Sprintf("Unsupported image type %q", req.ContentType))
	}
	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	key := path.Join(product.ImageKeyPrefix(), uuid.New().String()+ext)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, 0)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	return &ImageUploadResponse{UploadURL: url, Key: key, ExpiresAt: expiresAt}, nil
}

// ConfirmImage attaches an uploaded image once the object exists
func (s *ProductService) ConfirmImage(ctx context.Context, vendorID, productID uuid.UUID, req ConfirmImageRequest) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Image uploads are not configured")
	}
	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}
	exists, err := s.storage.ObjectExists(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("check uploaded image: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError("IMAGE_NOT_UPLOADED", "The image has not been uploaded yet")
	}
	if err := product.AddImage(req.Key); err != nil {
		return nil, err
	}
	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	v, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	current, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, product, v, current)
}

func (s *ProductService) quote(ctx context.Context, product *catalog.Product, v *vendor.VendorProfile, ps pricing.Settings) (pricing.Breakdown, string, error) {
	name := strategy.PricingMarketplace
	if v != nil {
		name = v.PricingStrategy()
	}
	priced, err := s.strategies.GetPricingStrategy(name)
	if err != nil {
		return pricing.Breakdown{}, "", err
	}
	result, err := priced.CalculatePrice(ctx, strategy.PricingContext{
		ProductID: product.ID.String(),
		VendorID:  product.VendorID.String(),
		Quantity:  1,
		BasePrice: product.BasePrice,
		Currency:  product.Currency.String(),
		Settings:  ps,
	})
	if err != nil {
		return pricing.Breakdown{}, "", err
	}
	return result.Unit, name, nil
}

func (s *ProductService) respond(ctx context.Context, product *catalog.Product, v *vendor.VendorProfile, current *settings.MarketplaceSettings) (*ProductResponse, error) {
	quote, _, err := s.quote(ctx, product, v, current.Pricing())
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product, quote)
	return &resp, nil
}

func (s *ProductService) vendorsOf(ctx context.Context, products []catalog.Product) (map[uuid.UUID]*vendor.VendorProfile, error) {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, p := range products {
		if !seen[p.VendorID] {
			seen[p.VendorID] = true
			ids = append(ids, p.VendorID)
		}
	}
	result := make(map[uuid.UUID]*vendor.VendorProfile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	vendors, err := s.vendorRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range vendors {
		result[vendors[i].ID] = &vendors[i]
	}
	return result, nil
}

func (s *ProductService) approvedVendor(ctx context.Context, vendorID uuid.UUID) (*vendor.VendorProfile, error) {
	v, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrForbidden
		}
		return nil, err
	}
	if !v.IsApproved() {
		return nil, shared.NewDomainError("VENDOR_NOT_APPROVED", "Your store has not been approved yet")
	}
	return v, nil
}

func (s *ProductService) ownedProduct(ctx context.Context, vendorID, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.VendorID != vendorID {
		return nil, shared.ErrForbidden
	}
	return product, nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish product events", zap.Error(err))
	}
}
