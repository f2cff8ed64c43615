package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/realtime"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ChangeFeed is the subscription surface of the realtime hub
type ChangeFeed interface {
	Subscribe(table string, viewer realtime.Viewer) (*realtime.Subscription, error)
	Tables() []string
	Stats() realtime.HubStats
}

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	ID    string
	Data  string
}

// RealtimeHandler streams table changes over server-sent events
type RealtimeHandler struct {
	BaseHandler
	feed       ChangeFeed
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int
}

// RealtimeOption configures a RealtimeHandler
type RealtimeOption func(*RealtimeHandler)

// WithRealtimeLogger sets the handler logger
func WithRealtimeLogger(logger *zap.Logger) RealtimeOption {
	return func(h *RealtimeHandler) {
		h.logger = logger
	}
}

// WithRealtimeHeartbeat sets the keep-alive interval
func WithRealtimeHeartbeat(interval time.Duration) RealtimeOption {
	return func(h *RealtimeHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithRealtimeMaxClients caps concurrent streams; zero means unlimited
func WithRealtimeMaxClients(max int) RealtimeOption {
	return func(h *RealtimeHandler) {
		h.maxClients = max
	}
}

// NewRealtimeHandler creates a new change feed handler
func NewRealtimeHandler(feed ChangeFeed, opts ...RealtimeOption) *RealtimeHandler {
	h := &RealtimeHandler{
		feed:       feed,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 10000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// viewerFromContext maps JWT claims to a feed viewer. Anonymous callers
// only receive public tables.
func viewerFromContext(c *gin.Context) realtime.Viewer {
	var v realtime.Viewer
	if id, err := getUserID(c); err == nil {
		v.UserID = id
	}
	if vendorID, ok := getVendorID(c); ok {
		v.VendorID = vendorID
	}
	v.Admin = middleware.IsAdmin(c)
	return v
}

// ListTables godoc
// @Summary      Tables with a change feed
// @Tags         realtime
// @Produce      json
// @Success      200 {object} dto.Response{data=[]string}
// @Router       /realtime [get]
func (h *RealtimeHandler) ListTables(c *gin.Context) {
	h.Success(c, h.feed.Tables())
}

// Stream godoc
// @Summary      Subscribe to row changes of a table
// @Description  Server-sent events. Each change is named after its event type (product.updated,
// @Description  order.paid) with the change JSON as data. Owner scoped tables only deliver the caller's rows unless admin.
// @Tags         realtime
// @Produce      text/event-stream
// @Param        table path string true "Table name"
// @Success      200 {string} string "SSE stream"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /realtime/{table} [get]
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.feed.Stats().Subscribers >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, "MAX_CONNECTIONS_REACHED", "Maximum number of realtime connections reached")
		return
	}

	viewer := viewerFromContext(c)
	sub, err := h.feed.Subscribe(c.Param("table"), viewer)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	// streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Status(http.StatusOK)

	h.logger.Info("realtime subscriber connected",
		zap.String("subscription_id", sub.ID),
		zap.String("table", sub.Table),
		zap.Stringer("user_id", viewer.UserID))

	writeSSE(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"subscription_id":%q,"table":%q,"timestamp":%d}`, sub.ID, sub.Table, time.Now().Unix()),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("realtime subscriber disconnected", zap.String("subscription_id", sub.ID))
			return
		case <-ticker.C:
			writeSSE(c.Writer, SSEMessage{Event: "heartbeat", Data: fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix())})
			c.Writer.Flush()
		case change, ok := <-sub.C:
			if !ok {
				// hub closed
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.logger.Error("failed to encode change", zap.Error(err))
				continue
			}
			writeSSE(c.Writer, SSEMessage{Event: change.Type, ID: changeID(change.ID), Data: string(data)})
			c.Writer.Flush()
		}
	}
}

func changeID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// writeSSE writes one event in text/event-stream framing
func writeSSE(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
