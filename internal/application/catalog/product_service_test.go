package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/strategy"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) SaveWithLock(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

type MockVendorRepository struct {
	mock.Mock
}

func (m *MockVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindBySlug(ctx context.Context, slug string) (*vendor.VendorProfile, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]vendor.VendorProfile, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]vendor.VendorProfile), args.Error(1)
}

func (m *MockVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]vendor.VendorProfile, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]vendor.VendorProfile), args.Get(1).(int64), args.Error(2)
}

func (m *MockVendorRepository) ExistsBySlug(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVendorRepository) Save(ctx context.Context, v *vendor.VendorProfile) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVendorRepository) CountByStatus(ctx context.Context, status vendor.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*settings.MarketplaceSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.MarketplaceSettings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, s *settings.MarketplaceSettings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSettingsRepository) ListCurrencies(ctx context.Context, enabledOnly bool) ([]settings.Currency, error) {
	args := m.Called(ctx, enabledOnly)
	return args.Get(0).([]settings.Currency), args.Error(1)
}

func (m *MockSettingsRepository) SaveCurrency(ctx context.Context, c *settings.Currency) error {
	return m.Called(ctx, c).Error(0)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type stubStrategies map[string]strategy.PricingStrategy

func (s stubStrategies) GetPricingStrategy(name string) (strategy.PricingStrategy, error) {
	if p, ok := s[name]; ok {
		return p, nil
	}
	return nil, errors.New("unknown strategy")
}

func newStrategies() stubStrategies {
	return stubStrategies{
		strategy.PricingMarketplace: strategy.NewMarketplacePricingStrategy(),
		strategy.PricingFlat:        strategy.NewFlatPricingStrategy(),
	}
}

type productFixture struct {
	products *MockProductRepository
	vendors  *MockVendorRepository
	settings *MockSettingsRepository
	storage  *MockObjectStorage
	service  *ProductService
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products: new(MockProductRepository),
		vendors:  new(MockVendorRepository),
		settings: new(MockSettingsRepository),
		storage:  new(MockObjectStorage),
	}
	f.service = NewProductService(f.products, f.vendors, f.settings, newStrategies(), f.storage, zap.NewNop())
	return f
}

func approvedVendor(t *testing.T) *vendor.VendorProfile {
	t.Helper()
	v, err := vendor.Apply(uuid.New(), "Harbour Goods", "Coastal homeware")
	require.NoError(t, err)
	require.NoError(t, v.Approve())
	v.ClearDomainEvents()
	return v
}

func newProduct(t *testing.T, vendorID uuid.UUID, price int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(vendorID, "Linen throw", "Stonewashed", "Home", decimal.NewFromInt(price), valueobject.USD, 10)
	require.NoError(t, err)
	require.NoError(t, p.Publish())
	p.ClearDomainEvents()
	return p
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("approved vendor creates a published product priced with commission", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := f.service.Create(ctx, v.ID, CreateProductRequest{
			Name:      "Linen throw",
			Category:  "Home",
			BasePrice: decimal.NewFromInt(100),
			Stock:     5,
			Publish:   true,
		})

		require.NoError(t, err)
		assert.Equal(t, v.ID, resp.VendorID)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, "home", resp.Category)
		assert.True(t, resp.Price.Equal(decimal.NewFromInt(110)))
		f.products.AssertExpectations(t)
	})

	t.Run("commission exempt vendor shows the base price", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		v.SetCommissionExempt(true)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
		f.products.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := f.service.Create(ctx, v.ID, CreateProductRequest{
			Name:      "Linen throw",
			BasePrice: decimal.NewFromInt(100),
		})

		require.NoError(t, err)
		assert.Equal(t, "draft", resp.Status)
		assert.True(t, resp.Price.Equal(decimal.NewFromInt(100)))
	})

	t.Run("pending vendor is rejected", func(t *testing.T) {
		f := newProductFixture()
		v, err := vendor.Apply(uuid.New(), "Pending Store", "")
		require.NoError(t, err)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)

		_, err = f.service.Create(ctx, v.ID, CreateProductRequest{Name: "X", BasePrice: decimal.NewFromInt(1)})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VENDOR_NOT_APPROVED", domainErr.Code)
		f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown vendor is forbidden", func(t *testing.T) {
		f := newProductFixture()
		id := uuid.New()
		f.vendors.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(ctx, id, CreateProductRequest{Name: "X", BasePrice: decimal.NewFromInt(1)})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("owner updates price and stock", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 40)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.products.On("SaveWithLock", ctx, p).Return(nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)

		price := decimal.NewFromInt(50)
		stock := int64(3)
		resp, err := f.service.Update(ctx, v.ID, p.ID, UpdateProductRequest{BasePrice: &price, Stock: &stock})

		require.NoError(t, err)
		assert.True(t, resp.BasePrice.Equal(price))
		assert.Equal(t, int64(3), resp.Stock)
		assert.True(t, resp.Price.Equal(decimal.NewFromInt(55)))
	})

	t.Run("other vendor is forbidden", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, uuid.New(), 40)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)

		name := "Hijacked"
		_, err := f.service.Update(ctx, v.ID, p.ID, UpdateProductRequest{Name: &name})

		assert.ErrorIs(t, err, shared.ErrForbidden)
		f.products.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestProductService_Archive(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	v := approvedVendor(t)
	p := newProduct(t, v.ID, 10)
	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.products.On("SaveWithLock", ctx, p).Return(nil)

	require.NoError(t, f.service.Archive(ctx, v.ID, p.ID))
	assert.Equal(t, catalog.ProductStatusArchived, p.Status)
	assert.False(t, p.IsPurchasable())
}

func TestProductService_Get_SignsImages(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	v := approvedVendor(t)
	p := newProduct(t, v.ID, 10)
	key := p.ImageKeyPrefix() + "/a.png"
	require.NoError(t, p.AddImage(key))

	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
	f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
	f.storage.On("GenerateDownloadURL", ctx, key, time.Duration(0)).Return("https://cdn.example/a.png", time.Now(), nil)

	resp, err := f.service.Get(ctx, p.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{key}, resp.ImageKeys)
	assert.Equal(t, []string{"https://cdn.example/a.png"}, resp.ImageURLs)
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	regular := approvedVendor(t)
	exempt := approvedVendor(t)
	exempt.SetCommissionExempt(true)

	products := []catalog.Product{*newProduct(t, regular.ID, 100), *newProduct(t, exempt.ID, 100)}
	f.products.On("FindAll", ctx, mock.MatchedBy(func(filter catalog.ProductFilter) bool {
		return filter.Page == 1 && filter.PageSize == 20 && filter.OrderBy == "created_at"
	})).Return(products, int64(2), nil)
	f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
	f.vendors.On("FindByIDs", ctx, []uuid.UUID{regular.ID, exempt.ID}).
		Return([]vendor.VendorProfile{*regular, *exempt}, nil)

	page, err := f.service.List(ctx, ListProductsRequest{OrderBy: "drop table"})

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.True(t, page.Items[0].Price.Equal(decimal.NewFromInt(110)))
	assert.True(t, page.Items[1].Price.Equal(decimal.NewFromInt(100)))
}

func TestProductService_Quote(t *testing.T) {
	ctx := context.Background()

	t.Run("base currency", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 100)
		current := settings.Defaults()
		current.VATEnabled = true
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(current, nil)

		quote, err := f.service.Quote(ctx, p.ID, "")

		require.NoError(t, err)
		assert.Equal(t, "USD", quote.Currency)
		assert.Equal(t, strategy.PricingMarketplace, quote.PricingStrategy)
		assert.True(t, quote.Commission.Equal(decimal.NewFromInt(10)))
		assert.True(t, quote.VAT.Equal(decimal.RequireFromString("16.5")))
		assert.True(t, quote.Total.Equal(decimal.RequireFromString("126.5")))
	})

	t.Run("converted into display currency", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 100)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
		eur, err := settings.NewCurrency("EUR", "€", decimal.RequireFromString("0.9"), true)
		require.NoError(t, err)
		f.settings.On("ListCurrencies", ctx, true).Return([]settings.Currency{*eur}, nil)

		quote, err := f.service.Quote(ctx, p.ID, "eur")

		require.NoError(t, err)
		assert.Equal(t, "EUR", quote.Currency)
		assert.True(t, quote.Total.Equal(decimal.NewFromInt(99)))
	})

	t.Run("unsupported currency", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 100)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
		f.settings.On("ListCurrencies", ctx, true).Return([]settings.Currency{}, nil)

		_, err := f.service.Quote(ctx, p.ID, "ZAR")

		assert.ErrorIs(t, err, settings.ErrUnsupportedCurrency)
	})
}

func TestProductService_ImageUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a key under the product prefix", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 10)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		expires := time.Now().Add(15 * time.Minute)
		f.storage.On("GenerateUploadURL", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, p.ImageKeyPrefix()+"/") && strings.HasSuffix(key, ".png")
		}), "image/png", time.Duration(0)).Return("https://s3.example/put", expires, nil)

		resp, err := f.service.RequestImageUpload(ctx, v.ID, p.ID, ImageUploadRequest{Filename: "a.png", ContentType: "image/png"})

		require.NoError(t, err)
		assert.Equal(t, "https://s3.example/put", resp.UploadURL)
		assert.Equal(t, expires, resp.ExpiresAt)
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		f := newProductFixture()
		_, err := f.service.RequestImageUpload(ctx, uuid.New(), uuid.New(), ImageUploadRequest{Filename: "a.exe", ContentType: "application/octet-stream"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CONTENT_TYPE", domainErr.Code)
	})

	t.Run("confirm requires the object to exist", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 10)
		key := p.ImageKeyPrefix() + "/missing.png"
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.storage.On("ObjectExists", ctx, key).Return(false, nil)

		_, err := f.service.ConfirmImage(ctx, v.ID, p.ID, ConfirmImageRequest{Key: key})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "IMAGE_NOT_UPLOADED", domainErr.Code)
	})

	t.Run("confirm attaches the image", func(t *testing.T) {
		f := newProductFixture()
		v := approvedVendor(t)
		p := newProduct(t, v.ID, 10)
		key := p.ImageKeyPrefix() + "/ok.webp"
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.products.On("SaveWithLock", ctx, p).Return(nil)
		f.vendors.On("FindByID", ctx, v.ID).Return(v, nil)
		f.settings.On("Get", ctx).Return(settings.Defaults(), nil)
		f.storage.On("ObjectExists", ctx, key).Return(true, nil)

		resp, err := f.service.ConfirmImage(ctx, v.ID, p.ID, ConfirmImageRequest{Key: key})

		require.NoError(t, err)
		assert.Contains(t, resp.ImageKeys, key)
	})
}
