package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/checkout"
	"github.com/marketplace/backend/internal/domain/shared"
)

// CheckoutService is the order surface used by CheckoutHandler
type CheckoutService interface {
	Checkout(ctx context.Context, callerID *uuid.UUID, req checkout.CheckoutRequest) (*checkout.CheckoutResponse, error)
	GetOrder(ctx context.Context, p checkout.Principal, orderID uuid.UUID) (*checkout.OrderResponse, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, req checkout.ListOrdersRequest) (shared.Paginated[checkout.OrderResponse], error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, req checkout.ListOrdersRequest) (shared.Paginated[checkout.OrderResponse], error)
	ListOrders(ctx context.Context, req checkout.ListOrdersRequest) (shared.Paginated[checkout.OrderResponse], error)
	UpdateFulfilment(ctx context.Context, vendorID, orderID uuid.UUID, req checkout.FulfilmentRequest) (*checkout.OrderResponse, error)
	CancelOrder(ctx context.Context, p checkout.Principal, orderID uuid.UUID, req checkout.CancelRequest) (*checkout.OrderResponse, error)
	GetInvoice(ctx context.Context, p checkout.Principal, orderID uuid.UUID) ([]byte, string, error)
}

// CheckoutHandler serves checkout and order management
type CheckoutHandler struct {
	BaseHandler
	checkoutService CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Checkout godoc
// @Summary      Place orders for a cart
// @Description  Splits the cart into one order per vendor, reserves stock and starts the payment.
// @Description  Anonymous buyers get a guest account; its tokens are returned in account.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.CheckoutRequest true "Cart, contact and gateway"
// @Success      201 {object} dto.Response{data=checkout.CheckoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkout.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.checkoutService.Checkout(c.Request.Context(), optionalUserID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListMyOrders godoc
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "Order status"
// @Success      200 {object} dto.Response{data=[]checkout.OrderResponse,meta=dto.Meta}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *CheckoutHandler) ListMyOrders(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req checkout.ListOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.checkoutService.ListCustomerOrders(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// ListVendorOrders godoc
// @Summary      List orders placed with the caller's store
// @Tags         vendor-orders
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "Order status"
// @Success      200 {object} dto.Response{data=[]checkout.OrderResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/orders [get]
func (h *CheckoutHandler) ListVendorOrders(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	var req checkout.ListOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.checkoutService.ListVendorOrders(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// AdminListOrders godoc
// @Summary      List all orders
// @Tags         admin-orders
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "Order status"
// @Param        search    query string false "Order number search"
// @Success      200 {object} dto.Response{data=[]checkout.OrderResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *CheckoutHandler) AdminListOrders(c *gin.Context) {
	var req checkout.ListOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.checkoutService.ListOrders(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// GetOrder godoc
// @Summary      Get an order
// @Description  Visible to the buyer, the selling vendor and admins
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=checkout.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	p, id, ok := h.principalAndOrder(c)
	if !ok {
		return
	}
	o, err := h.checkoutService.GetOrder(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// CancelOrder godoc
// @Summary      Cancel an unpaid order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path string                 true  "Order ID"
// @Param        request body checkout.CancelRequest false "Reason"
// @Success      200 {object} dto.Response{data=checkout.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
	p, id, ok := h.principalAndOrder(c)
	if !ok {
		return
	}
	var req checkout.CancelRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkoutService.CancelOrder(c.Request.Context(), p, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// UpdateFulfilment godoc
// @Summary      Move an order through fulfilment
// @Tags         vendor-orders
// @Accept       json
// @Produce      json
// @Param        id      path string                     true "Order ID"
// @Param        request body checkout.FulfilmentRequest true "New status"
// @Success      200 {object} dto.Response{data=checkout.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/orders/{id}/fulfilment [put]
func (h *CheckoutHandler) UpdateFulfilment(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req checkout.FulfilmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkoutService.UpdateFulfilment(c.Request.Context(), vendorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// GetInvoice godoc
// @Summary      Download the order invoice
// @Tags         orders
// @Produce      application/pdf
// @Param        id path string true "Order ID"
// @Success      200 {file} file "PDF invoice"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/invoice [get]
func (h *CheckoutHandler) GetInvoice(c *gin.Context) {
	p, id, ok := h.principalAndOrder(c)
	if !ok {
		return
	}
	pdf, filename, err := h.checkoutService.GetInvoice(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *CheckoutHandler) principalAndOrder(c *gin.Context) (checkout.Principal, uuid.UUID, bool) {
	p, err := getPrincipal(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return checkout.Principal{}, uuid.Nil, false
	}
	id, ok := h.parseUUIDParam(c, "id")
	return p, id, ok
}
