package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentapp "github.com/marketplace/backend/internal/application/payment"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// maxCallbackBody bounds gateway notification bodies
const maxCallbackBody = 1 << 20

// PaymentService is the payment surface used by PaymentHandler
type PaymentService interface {
	ProcessPayment(ctx context.Context, customerID uuid.UUID, req paymentapp.ProcessPaymentRequest, payerEmail string) (*paymentapp.PaymentResult, error)
	HandleCallback(ctx context.Context, gatewayName string, payload []byte, headers map[string]string) (*paymentapp.CallbackResult, error)
	GetTransaction(ctx context.Context, id, callerID uuid.UUID, admin bool) (*paymentapp.TransactionResponse, error)
	Refund(ctx context.Context, orderID uuid.UUID, req paymentapp.RefundRequest) (*paymentapp.TransactionResponse, error)
}

// PaymentHandler serves payment initiation, gateway callbacks and refunds
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// ProcessPayment godoc
// @Summary      Pay for a checkout or an order
// @Description  Answers with the gateway outcome unwrapped: redirect_url for redirect gateways,
// @Description  success and error for synchronous ones. amount must equal the outstanding total.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body paymentapp.ProcessPaymentRequest true "Payment"
// @Success      200 {object} paymentapp.PaymentResult
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /functions/v1/process-payment [post]
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req paymentapp.ProcessPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.Currency = strings.ToUpper(req.Currency)

	var payerEmail string
	if claims := middleware.GetJWTClaims(c); claims != nil {
		payerEmail = claims.Email
	}
	result, err := h.paymentService.ProcessPayment(c.Request.Context(), userID, req, payerEmail)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Callback godoc
// @Summary      Gateway notification
// @Description  Webhook or status update from paypal, iveri or paynow. Each status of a payment is applied once.
// @Tags         payments
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        gateway path string true "Gateway name"
// @Success      200 {object} dto.Response{data=paymentapp.CallbackResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/callback/{gateway} [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	gateway := c.Param("gateway")
	if _, err := payment.ParseGatewayType(gateway); err != nil {
		h.NotFound(c, "Unknown gateway")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	result, err := h.paymentService.HandleCallback(c.Request.Context(), gateway, body, callbackHeaders(c.Request.Header))
	switch {
	case err == nil:
		h.Success(c, result)
	case errors.Is(err, payment.ErrGatewayInvalidCallback):
		h.logger.Warn("Rejected payment callback", zap.String("gateway", gateway), zap.Error(err))
		h.Error(c, http.StatusBadRequest, "INVALID_CALLBACK", "Callback could not be verified")
	case errors.Is(err, payment.ErrGatewayNotConfigured), errors.Is(err, payment.ErrGatewayNotEnabled):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeGatewayUnavailable, "Gateway is not available")
	default:
		h.HandleError(c, err)
	}
}

// callbackHeaders flattens request headers with lowercased names
func callbackHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			out[strings.ToLower(name)] = values[0]
		}
	}
	return out
}

// GetTransaction godoc
// @Summary      Get a payment transaction
// @Tags         payments
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} dto.Response{data=paymentapp.TransactionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/transactions/{id} [get]
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	txn, err := h.paymentService.GetTransaction(c.Request.Context(), id, userID, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txn)
}

// RefundOrder godoc
// @Summary      Refund a paid order
// @Description  Full refund through the original gateway. Wallet credit and commission are reversed.
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id      path string                   true  "Order ID"
// @Param        request body paymentapp.RefundRequest false "Reason"
// @Success      200 {object} dto.Response{data=paymentapp.TransactionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/orders/{id}/refund [post]
func (h *PaymentHandler) RefundOrder(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req paymentapp.RefundRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	txn, err := h.paymentService.Refund(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txn)
}
