package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderEvent(eventType string) *order.OrderEvent {
	return &order.OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, order.AggregateTypeOrder, order.TopicOrders, uuid.New(), uuid.New()),
		OrderID:         uuid.New(),
		OrderNumber:     "ORD-20260314-0001",
		Status:          order.StatusPaid,
	}
}

// testHandler records what it receives
type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicMsg   string
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Routing(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	paid := newTestHandler(order.EventTypeOrderPaid)
	everything := newTestHandler()
	explicit := newTestHandler("ignored.by.subscribe")
	bus.Subscribe(paid)
	bus.Subscribe(everything)
	bus.Subscribe(explicit, order.EventTypeOrderCancelled)

	require.NoError(t, bus.Publish(ctx,
		newOrderEvent(order.EventTypeOrderPaid),
		newOrderEvent(order.EventTypeOrderCancelled),
		newOrderEvent(order.EventTypeOrderCreated),
	))

	assert.Equal(t, 1, paid.count())
	assert.Equal(t, 1, explicit.count())
	assert.Equal(t, 3, everything.count())
	assert.Equal(t, BusStats{Published: 3, Delivered: 5}, bus.Stats())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler(order.EventTypeOrderPaid)
	failing.err = errors.New("wallet unavailable")
	panicking := newTestHandler(order.EventTypeOrderPaid)
	panicking.panicMsg = "boom"
	healthy := newTestHandler(order.EventTypeOrderPaid)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(ctx, newOrderEvent(order.EventTypeOrderPaid))

	require.NoError(t, err)
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Stats().Failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler(order.EventTypeOrderPaid, order.EventTypeOrderRefunded)
	bus.Subscribe(h)

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(ctx, newOrderEvent(order.EventTypeOrderPaid)))

	assert.Zero(t, h.count())
	assert.Empty(t, bus.byType)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.running.Load())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.running.Load())
}
