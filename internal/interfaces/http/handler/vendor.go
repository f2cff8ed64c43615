package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	vendorapp "github.com/marketplace/backend/internal/application/vendor"
	"github.com/marketplace/backend/internal/domain/shared"
)

// VendorService is the vendor surface used by VendorHandler
type VendorService interface {
	Apply(ctx context.Context, userID uuid.UUID, req vendorapp.ApplyRequest) (*vendorapp.VendorResponse, error)
	Approve(ctx context.Context, vendorID uuid.UUID) (*vendorapp.VendorResponse, error)
	Reinstate(ctx context.Context, vendorID uuid.UUID) (*vendorapp.VendorResponse, error)
	Suspend(ctx context.Context, vendorID uuid.UUID, req vendorapp.SuspendRequest) (*vendorapp.VendorResponse, error)
	SetCommissionExempt(ctx context.Context, vendorID uuid.UUID, exempt bool) (*vendorapp.VendorResponse, error)
	Get(ctx context.Context, vendorID uuid.UUID) (*vendorapp.VendorResponse, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*vendorapp.VendorResponse, error)
	GetBySlug(ctx context.Context, slug string) (*vendorapp.StorefrontResponse, error)
	List(ctx context.Context, req vendorapp.ListVendorsRequest) (shared.Paginated[vendorapp.VendorResponse], error)
	ListStorefronts(ctx context.Context, req vendorapp.ListVendorsRequest) (shared.Paginated[vendorapp.StorefrontResponse], error)
	UpdateStore(ctx context.Context, userID uuid.UUID, req vendorapp.UpdateStoreRequest) (*vendorapp.VendorResponse, error)
}

// CommissionExemptRequest toggles commission for a vendor
type CommissionExemptRequest struct {
	Exempt *bool `json:"exempt" binding:"required"`
}

// VendorHandler serves vendor onboarding, storefronts and vendor administration
type VendorHandler struct {
	BaseHandler
	vendorService VendorService
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(vendorService VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

// Apply godoc
// @Summary      Apply to become a vendor
// @Description  Opens a pending storefront. The vendor role is granted on approval; refresh the token afterwards.
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        request body vendorapp.ApplyRequest true "Storefront"
// @Success      201 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendors/apply [post]
func (h *VendorHandler) Apply(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req vendorapp.ApplyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.vendorService.Apply(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, v)
}

// GetMyStore godoc
// @Summary      Get the caller's storefront
// @Tags         vendors
// @Produce      json
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/store [get]
func (h *VendorHandler) GetMyStore(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	v, err := h.vendorService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// UpdateMyStore godoc
// @Summary      Update the caller's storefront
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        request body vendorapp.UpdateStoreRequest true "Storefront"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/store [put]
func (h *VendorHandler) UpdateMyStore(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req vendorapp.UpdateStoreRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.vendorService.UpdateStore(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// ListStorefronts godoc
// @Summary      List approved storefronts
// @Tags         storefronts
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        search    query string false "Store name search"
// @Success      200 {object} dto.Response{data=[]vendorapp.StorefrontResponse,meta=dto.Meta}
// @Router       /storefronts [get]
func (h *VendorHandler) ListStorefronts(c *gin.Context) {
	var req vendorapp.ListVendorsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.vendorService.ListStorefronts(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// GetStorefront godoc
// @Summary      Get a storefront by slug
// @Tags         storefronts
// @Produce      json
// @Param        slug path string true "Store slug"
// @Success      200 {object} dto.Response{data=vendorapp.StorefrontResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /storefronts/{slug} [get]
func (h *VendorHandler) GetStorefront(c *gin.Context) {
	s, err := h.vendorService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// AdminListVendors godoc
// @Summary      List vendors
// @Tags         admin-vendors
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        search    query string false "Store name search"
// @Param        status    query string false "pending, approved or suspended"
// @Success      200 {object} dto.Response{data=[]vendorapp.VendorResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/vendors [get]
func (h *VendorHandler) AdminListVendors(c *gin.Context) {
	var req vendorapp.ListVendorsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.vendorService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// AdminGetVendor godoc
// @Summary      Get a vendor
// @Tags         admin-vendors
// @Produce      json
// @Param        id path string true "Vendor ID"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/vendors/{id} [get]
func (h *VendorHandler) AdminGetVendor(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.vendorService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// ApproveVendor godoc
// @Summary      Approve a pending vendor
// @Tags         admin-vendors
// @Produce      json
// @Param        id path string true "Vendor ID"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/vendors/{id}/approve [post]
func (h *VendorHandler) ApproveVendor(c *gin.Context) {
	h.transition(c, h.vendorService.Approve)
}

// ReinstateVendor godoc
// @Summary      Reinstate a suspended vendor
// @Tags         admin-vendors
// @Produce      json
// @Param        id path string true "Vendor ID"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/vendors/{id}/reinstate [post]
func (h *VendorHandler) ReinstateVendor(c *gin.Context) {
	h.transition(c, h.vendorService.Reinstate)
}

func (h *VendorHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*vendorapp.VendorResponse, error)) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	v, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// SuspendVendor godoc
// @Summary      Suspend a vendor
// @Description  Hides the storefront and blocks new orders for its products
// @Tags         admin-vendors
// @Accept       json
// @Produce      json
// @Param        id      path string                   true "Vendor ID"
// @Param        request body vendorapp.SuspendRequest true "Reason"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/vendors/{id}/suspend [post]
func (h *VendorHandler) SuspendVendor(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req vendorapp.SuspendRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.vendorService.Suspend(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// SetCommissionExempt godoc
// @Summary      Toggle commission exemption
// @Tags         admin-vendors
// @Accept       json
// @Produce      json
// @Param        id      path string                  true "Vendor ID"
// @Param        request body CommissionExemptRequest true "Exemption"
// @Success      200 {object} dto.Response{data=vendorapp.VendorResponse}
// @Security     BearerAuth
// @Router       /admin/vendors/{id}/commission-exempt [put]
func (h *VendorHandler) SetCommissionExempt(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req CommissionExemptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.vendorService.SetCommissionExempt(c.Request.Context(), id, *req.Exempt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}
