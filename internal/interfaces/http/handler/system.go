package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/infrastructure/realtime"
)

// GatewayLister reports the payment gateways accepting payments
type GatewayLister interface {
	ListGateways() []payment.GatewayType
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	gateways  GatewayLister
	feed      ChangeFeed
}

// NewSystemHandler creates a new SystemHandler. gateways and feed may be nil.
func NewSystemHandler(name, version string, gateways GatewayLister, feed ChangeFeed) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		gateways:  gateways,
		feed:      feed,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string             `json:"name" example:"Marketplace API"`
	Version   string             `json:"version" example:"1.0.0"`
	GoVersion string             `json:"go_version" example:"go1.25.5"`
	Uptime    string             `json:"uptime" example:"1h30m45s"`
	Gateways  []string           `json:"gateways"`
	Realtime  *realtime.HubStats `json:"realtime,omitempty"`
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Description  Version, uptime, enabled payment gateways and change feed counters
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Gateways:  []string{},
	}
	if h.gateways != nil {
		for _, g := range h.gateways.ListGateways() {
			info.Gateways = append(info.Gateways, string(g))
		}
	}
	if h.feed != nil {
		stats := h.feed.Stats()
		info.Realtime = &stats
	}
	h.Success(c, info)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{Message: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}
