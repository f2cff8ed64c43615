package realtime

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/domain/wallet"
	"go.uber.org/zap"
)

// ErrUnknownTable is returned when subscribing to a table that has no feed
var ErrUnknownTable = shared.NewDomainError("UNKNOWN_TABLE", "No change feed for this table")

// Change is one row change delivered to subscribers. Record carries the
// event payload; clients treat it as a hint and re-fetch.
type Change struct {
	ID         uuid.UUID       `json:"id"`
	Table      string          `json:"table"`
	Type       string          `json:"type"`
	RecordID   uuid.UUID       `json:"record_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Record     json.RawMessage `json:"record,omitempty"`
	owners     []uuid.UUID
}

// ChangeFromEvent converts a domain event into a feed change
func ChangeFromEvent(event shared.DomainEvent) (Change, error) {
	record, err := json.Marshal(event)
	if err != nil {
		return Change{}, err
	}
	return Change{
		ID:         event.EventID(),
		Table:      event.Topic(),
		Type:       event.EventType(),
		RecordID:   event.AggregateID(),
		OccurredAt: event.OccurredAt(),
		Record:     record,
		owners:     event.OwnerIDs(),
	}, nil
}

// Viewer identifies who is listening. VendorID is set for vendor accounts.
type Viewer struct {
	UserID   uuid.UUID
	VendorID uuid.UUID
	Admin    bool
}

func (v Viewer) owns(owners []uuid.UUID) bool {
	for _, id := range owners {
		if id == uuid.Nil {
			continue
		}
		if id == v.UserID || id == v.VendorID {
			return true
		}
	}
	return false
}

// Subscription receives changes for one table
type Subscription struct {
	ID     string
	Table  string
	Viewer Viewer
	C      chan Change

	hub  *Hub
	once sync.Once
}

// Close removes the subscription from its hub
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// HubStats reports fan-out counters
type HubStats struct {
	Subscribers int   `json:"subscribers"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithBufferSize sets the per-subscriber channel size
func WithBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithLogger sets the hub logger
func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// Hub fans changes out to subscribers of each table. Rows of public tables
// reach everyone; rows of other tables reach their owners and admins.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[string]*Subscription
	tables     map[string]bool // table -> public
	bufferSize int
	logger     *zap.Logger

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a hub serving the marketplace tables
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs: make(map[string]map[string]*Subscription),
		tables: map[string]bool{
			catalog.TopicProducts:            true,
			settings.TopicSettings:           true,
			settings.TopicCurrencies:         true,
			order.TopicOrders:                false,
			payment.TopicPaymentTransactions: false,
			wallet.TopicWallets:              false,
			wallet.TopicCommissions:          false,
			vendor.TopicVendors:              false,
			identity.TopicProfiles:           false,
		},
		bufferSize: 64,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Tables lists the tables with a change feed
func (h *Hub) Tables() []string {
	tables := make([]string, 0, len(h.tables))
	for t := range h.tables {
		tables = append(tables, t)
	}
	slices.Sort(tables)
	return tables
}

// Subscribe registers a viewer on a table
func (h *Hub) Subscribe(table string, viewer Viewer) (*Subscription, error) {
	if _, ok := h.tables[table]; !ok {
		return nil, ErrUnknownTable
	}
	sub := &Subscription{
		ID:     uuid.NewString(),
		Table:  table,
		Viewer: viewer,
		C:      make(chan Change, h.bufferSize),
		hub:    h,
	}

	h.mu.Lock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[string]*Subscription)
	}
	h.subs[table][sub.ID] = sub
	h.mu.Unlock()

	return sub, nil
}

// Unsubscribe removes a subscription and closes its channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs[sub.Table], sub.ID)
		if len(h.subs[sub.Table]) == 0 {
			delete(h.subs, sub.Table)
		}
		h.mu.Unlock()
		close(sub.C)
	})
}

// Broadcast delivers a change to every subscriber allowed to see it and
// returns how many received it. Slow subscribers lose the change.
func (h *Hub) Broadcast(change Change) int {
	public := h.tables[change.Table]

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, sub := range h.subs[change.Table] {
		if !public && !sub.Viewer.Admin && !sub.Viewer.owns(change.owners) {
			continue
		}
		select {
		case sub.C <- change:
			sent++
		default:
			h.dropped.Add(1)
			h.logger.Warn("subscriber channel full, dropping change",
				zap.String("subscription_id", sub.ID),
				zap.String("table", change.Table),
			)
		}
	}
	h.delivered.Add(int64(sent))
	return sent
}

// EventTypes returns nil so the hub receives every event
func (h *Hub) EventTypes() []string {
	return nil
}

// Handle turns a domain event into a change and broadcasts it
func (h *Hub) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.Topic() == "" {
		return nil
	}
	change, err := ChangeFromEvent(event)
	if err != nil {
		h.logger.Error("failed to encode change", zap.String("event_type", event.EventType()), zap.Error(err))
		return err
	}
	h.Broadcast(change)
	return nil
}

// Stats returns subscriber and delivery counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	count := 0
	for _, subs := range h.subs {
		count += len(subs)
	}
	h.mu.RUnlock()
	return HubStats{Subscribers: count, Delivered: h.delivered.Load(), Dropped: h.dropped.Load()}
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Subscription, 0)
	for _, subs := range h.subs {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()
	for _, sub := range all {
		sub.Close()
	}
}

var _ shared.EventHandler = (*Hub)(nil)
