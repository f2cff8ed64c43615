package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	walletapp "github.com/marketplace/backend/internal/application/wallet"
	"github.com/marketplace/backend/internal/domain/shared"
)

// WalletService is the wallet and commission surface used by WalletHandler
type WalletService interface {
	GetWallet(ctx context.Context, vendorID uuid.UUID) (*walletapp.WalletResponse, error)
	ListTransactions(ctx context.Context, vendorID uuid.UUID, req walletapp.ListTransactionsRequest) (shared.Paginated[walletapp.TransactionResponse], error)
	RequestPayout(ctx context.Context, vendorID uuid.UUID, req walletapp.PayoutRequest) (*walletapp.TransactionResponse, error)
	ListCommissions(ctx context.Context, vendorID *uuid.UUID, req walletapp.ListCommissionsRequest) (shared.Paginated[walletapp.CommissionResponse], error)
	CommissionSummary(ctx context.Context, vendorID *uuid.UUID) (*walletapp.CommissionSummaryResponse, error)
}

// WalletHandler serves vendor balances, payouts and commission reports
type WalletHandler struct {
	BaseHandler
	walletService WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// GetMyWallet godoc
// @Summary      Get the caller's wallet
// @Tags         wallet
// @Produce      json
// @Success      200 {object} dto.Response{data=walletapp.WalletResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/wallet [get]
func (h *WalletHandler) GetMyWallet(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	h.respondWallet(c, vendorID)
}

// AdminGetWallet godoc
// @Summary      Get a vendor's wallet
// @Tags         admin-vendors
// @Produce      json
// @Param        id path string true "Vendor ID"
// @Success      200 {object} dto.Response{data=walletapp.WalletResponse}
// @Security     BearerAuth
// @Router       /admin/vendors/{id}/wallet [get]
func (h *WalletHandler) AdminGetWallet(c *gin.Context) {
	vendorID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.respondWallet(c, vendorID)
}

func (h *WalletHandler) respondWallet(c *gin.Context, vendorID uuid.UUID) {
	w, err := h.walletService.GetWallet(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, w)
}

// ListTransactions godoc
// @Summary      List wallet movements
// @Tags         wallet
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]walletapp.TransactionResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /vendor/wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	var req walletapp.ListTransactionsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.walletService.ListTransactions(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// RequestPayout godoc
// @Summary      Withdraw from the available balance
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request body walletapp.PayoutRequest true "Payout"
// @Success      201 {object} dto.Response{data=walletapp.TransactionResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /vendor/wallet/payouts [post]
func (h *WalletHandler) RequestPayout(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	var req walletapp.PayoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	txn, err := h.walletService.RequestPayout(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, txn)
}

// ListMyCommissions godoc
// @Summary      List commissions charged on the caller's orders
// @Tags         wallet
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "pending, settled or reversed"
// @Success      200 {object} dto.Response{data=[]walletapp.CommissionResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /vendor/commissions [get]
func (h *WalletHandler) ListMyCommissions(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	h.listCommissions(c, &vendorID)
}

// AdminListCommissions godoc
// @Summary      List commissions
// @Tags         admin-commissions
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size"
// @Param        status    query string false "pending, settled or reversed"
// @Param        vendor_id query string false "Vendor ID"
// @Success      200 {object} dto.Response{data=[]walletapp.CommissionResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /admin/commissions [get]
func (h *WalletHandler) AdminListCommissions(c *gin.Context) {
	h.listCommissions(c, nil)
}

func (h *WalletHandler) listCommissions(c *gin.Context, vendorID *uuid.UUID) {
	var req walletapp.ListCommissionsRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.walletService.ListCommissions(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, page)
}

// MyCommissionSummary godoc
// @Summary      Commission totals for the caller's store
// @Tags         wallet
// @Produce      json
// @Success      200 {object} dto.Response{data=walletapp.CommissionSummaryResponse}
// @Security     BearerAuth
// @Router       /vendor/commissions/summary [get]
func (h *WalletHandler) MyCommissionSummary(c *gin.Context) {
	vendorID, ok := h.requireVendor(c)
	if !ok {
		return
	}
	h.commissionSummary(c, &vendorID)
}

// AdminCommissionSummary godoc
// @Summary      Platform commission totals
// @Tags         admin-commissions
// @Produce      json
// @Param        vendor_id query string false "Limit to one vendor"
// @Success      200 {object} dto.Response{data=walletapp.CommissionSummaryResponse}
// @Security     BearerAuth
// @Router       /admin/commissions/summary [get]
func (h *WalletHandler) AdminCommissionSummary(c *gin.Context) {
	var vendorID *uuid.UUID
	if raw := c.Query("vendor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid vendor_id")
			return
		}
		vendorID = &id
	}
	h.commissionSummary(c, vendorID)
}

func (h *WalletHandler) commissionSummary(c *gin.Context, vendorID *uuid.UUID) {
	summary, err := h.walletService.CommissionSummary(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
