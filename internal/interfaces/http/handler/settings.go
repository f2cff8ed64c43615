package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	settingsapp "github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// SettingsService is the settings and currency surface used by SettingsHandler
type SettingsService interface {
	Get(ctx context.Context) (*settingsapp.SettingsResponse, error)
	Update(ctx context.Context, req settingsapp.UpdateSettingsRequest) (*settingsapp.SettingsResponse, error)
	ListCurrencies(ctx context.Context, enabledOnly bool) ([]settingsapp.CurrencyResponse, error)
	UpsertCurrency(ctx context.Context, req settingsapp.UpsertCurrencyRequest) (*settingsapp.CurrencyResponse, error)
	ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string) (*settingsapp.ConversionResponse, error)
}

// ConvertQuery is the query of the conversion endpoint
type ConvertQuery struct {
	Amount string `form:"amount" binding:"required"`
	From   string `form:"from" binding:"required,iso4217"`
	To     string `form:"to" binding:"required,iso4217"`
}

// SettingsHandler serves marketplace settings and display currencies
type SettingsHandler struct {
	BaseHandler
	settingsService SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings godoc
// @Summary      Marketplace settings
// @Description  Commission, VAT, shipping and currency settings used for pricing
// @Tags         settings
// @Produce      json
// @Success      200 {object} dto.Response{data=settingsapp.SettingsResponse}
// @Router       /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// UpdateSettings godoc
// @Summary      Update marketplace settings
// @Description  Only the fields present are changed
// @Tags         admin-settings
// @Accept       json
// @Produce      json
// @Param        request body settingsapp.UpdateSettingsRequest true "Changed fields"
// @Success      200 {object} dto.Response{data=settingsapp.SettingsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/settings [patch]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req settingsapp.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.settingsService.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

// ListCurrencies godoc
// @Summary      Display currencies
// @Description  Enabled currencies; admins may pass all=true to include disabled ones
// @Tags         settings
// @Produce      json
// @Param        all query bool false "Include disabled (admin)"
// @Success      200 {object} dto.Response{data=[]settingsapp.CurrencyResponse}
// @Router       /currencies [get]
func (h *SettingsHandler) ListCurrencies(c *gin.Context) {
	enabledOnly := !(c.Query("all") == "true" && middleware.IsAdmin(c))
	list, err := h.settingsService.ListCurrencies(c.Request.Context(), enabledOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if list == nil {
		list = []settingsapp.CurrencyResponse{}
	}
	h.Success(c, list)
}

// UpsertCurrency godoc
// @Summary      Create or replace a currency
// @Tags         admin-settings
// @Accept       json
// @Produce      json
// @Param        request body settingsapp.UpsertCurrencyRequest true "Currency"
// @Success      200 {object} dto.Response{data=settingsapp.CurrencyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/currencies [put]
func (h *SettingsHandler) UpsertCurrency(c *gin.Context) {
	var req settingsapp.UpsertCurrencyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.Code = strings.ToUpper(req.Code)
	cur, err := h.settingsService.UpsertCurrency(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// ConvertAmount godoc
// @Summary      Convert an amount between currencies
// @Tags         settings
// @Produce      json
// @Param        amount query string true  "Amount"
// @Param        from   query string true  "Source currency"
// @Param        to     query string true  "Target currency"
// @Success      200 {object} dto.Response{data=settingsapp.ConversionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /currencies/convert [get]
func (h *SettingsHandler) ConvertAmount(c *gin.Context) {
	var q ConvertQuery
	if !h.BindQuery(c, &q) {
		return
	}
	amount, err := decimal.NewFromString(q.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}
	res, err := h.settingsService.ConvertAmount(c.Request.Context(), amount, strings.ToUpper(q.From), strings.ToUpper(q.To))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
