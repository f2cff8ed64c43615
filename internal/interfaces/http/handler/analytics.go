package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/application/analytics"
)

// AnalyticsService is the analytics surface used by AnalyticsHandler
type AnalyticsService interface {
	RecordVisit(ctx context.Context, req analytics.RecordVisitRequest) (*analytics.RecordVisitResponse, error)
	Dashboard(ctx context.Context) (*analytics.DashboardResponse, error)
}

// AnalyticsHandler serves visit tracking and the admin dashboard
type AnalyticsHandler struct {
	BaseHandler
	analyticsService AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// RecordVisit godoc
// @Summary      Record a storefront visit
// @Description  Counted once per session per day
// @Tags         analytics
// @Accept       json
// @Produce      json
// @Param        request body analytics.RecordVisitRequest true "Visit"
// @Success      200 {object} dto.Response{data=analytics.RecordVisitResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /analytics/visits [post]
func (h *AnalyticsHandler) RecordVisit(c *gin.Context) {
	var req analytics.RecordVisitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.analyticsService.RecordVisit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Dashboard godoc
// @Summary      Admin dashboard
// @Tags         admin-analytics
// @Produce      json
// @Success      200 {object} dto.Response{data=analytics.DashboardResponse}
// @Security     BearerAuth
// @Router       /admin/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	res, err := h.analyticsService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
