package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

const productStatusActive = "active"

// ProductService is the catalog surface used by ProductHandler
type ProductService interface {
	Create(ctx context.Context, vendorID uuid.UUID, req catalog.CreateProductRequest) (*catalog.ProductResponse, error)
	Update(ctx context.Context, vendorID, productID uuid.UUID, req catalog.UpdateProductRequest) (*catalog.ProductResponse, error)
	Archive(ctx context.Context, vendorID, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*catalog.ProductResponse, error)
	List(ctx context.Context, req catalog.ListProductsRequest) (shared.Paginated[catalog.ProductResponse], error)
	Quote(ctx context.Context, productID uuid.UUID, currency string) (*catalog.QuoteResponse, error)
	RequestImageUpload(ctx context.Context, vendorID, productID uuid.UUID, req catalog.ImageUploadRequest) (*catalog.ImageUploadResponse, error)
	ConfirmImage(ctx context.Context, vendorID, productID uuid.UUID, req catalog.ConfirmImageRequest) (*catalog.ProductResponse, error)
}

// ProductHandler serves the storefront catalog and vendor product management
type ProductHandler struct {
	BaseHandler
	productService ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// canSeeAllStatuses reports whether the caller may see draft and archived
// products of the given vendor
func canSeeAllStatuses(c *gin.Context, vendorID uuid.UUID) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	own, ok := getVendorID(c)
	return ok && own == vendorID
}

// ListProducts godoc
// @Summary      List products
// @Description  Storefront listing. Only active products are returned unless the caller owns the vendor or is an admin.
// @Tags         products
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        search    query string false "Name search"
// @Param        category  query string false "Category"
// @Param        vendor_id query string false "Vendor ID"
// @Param        status    query string false "draft, active or archived"
// @Param        order_by  query string false "created_at, name, base_price or stock"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]catalog.ProductResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req catalog.ListProductsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if !middleware.IsAdmin(c) && (req.VendorID == nil || !canSeeAllStatuses(c, *req.VendorID)) {
		req.Status = productStatusActive
	}

	page, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// ListVendorProducts godoc
// @Summary      List the caller's products
// @Tags         vendor-products
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "draft, active or archived"
// @Success      200 {object} dto.Response{data=[]catalog.ProductResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products [get]
func (h *ProductHandler) ListVendorProducts(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	var req catalog.ListProductsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.VendorID = &vendorID

	page, err := h.productService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// GetProduct godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if product.Status != productStatusActive && !canSeeAllStatuses(c, product.VendorID) {
		h.NotFound(c, "Product not found")
		return
	}
	h.Success(c, product)
}

// QuoteProduct godoc
// @Summary      Price breakdown for one unit
// @Description  Base price, commission, VAT and total, optionally converted to a display currency
// @Tags         products
// @Produce      json
// @Param        id       path  string true  "Product ID"
// @Param        currency query string false "Display currency"
// @Success      200 {object} dto.Response{data=catalog.QuoteResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/quote [get]
func (h *ProductHandler) QuoteProduct(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	quote, err := h.productService.Quote(c.Request.Context(), id, currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// CreateProduct godoc
// @Summary      Create a product
// @Tags         vendor-products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	var req catalog.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// UpdateProduct godoc
// @Summary      Update a product
// @Tags         vendor-products
// @Accept       json
// @Produce      json
// @Param        id      path string                       true "Product ID"
// @Param        request body catalog.UpdateProductRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products/{id} [patch]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), vendorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ArchiveProduct godoc
// @Summary      Archive a product
// @Tags         vendor-products
// @Param        id path string true "Product ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products/{id} [delete]
func (h *ProductHandler) ArchiveProduct(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Archive(c.Request.Context(), vendorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RequestImageUpload godoc
// @Summary      Presigned product image upload
// @Description  Returns a PUT URL for uploading an image straight to object storage
// @Tags         vendor-products
// @Accept       json
// @Produce      json
// @Param        id      path string                     true "Product ID"
// @Param        request body catalog.ImageUploadRequest true "File details"
// @Success      200 {object} dto.Response{data=catalog.ImageUploadResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products/{id}/images/upload-url [post]
func (h *ProductHandler) RequestImageUpload(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.ImageUploadRequest
	if !h.BindJSON(c, &req) {
		return
	}
	upload, err := h.productService.RequestImageUpload(c.Request.Context(), vendorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}

// ConfirmImage godoc
// @Summary      Attach an uploaded image
// @Tags         vendor-products
// @Accept       json
// @Produce      json
// @Param        id      path string                      true "Product ID"
// @Param        request body catalog.ConfirmImageRequest true "Object key"
// @Success      200 {object} dto.Response{data=catalog.ProductResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/products/{id}/images [post]
func (h *ProductHandler) ConfirmImage(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.ConfirmImageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.productService.ConfirmImage(c.Request.Context(), vendorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
