package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("first delivery runs the handler", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler(order.EventTypeOrderPaid)
		h := NewIdempotentHandler("wallet", inner, store, zap.NewNop())
		ev := newOrderEvent(order.EventTypeOrderPaid)
		store.On("MarkProcessed", ctx, "event:wallet:"+ev.EventID().String(), 24*time.Hour).Return(true, nil)

		require.NoError(t, h.Handle(ctx, ev))

		assert.Equal(t, 1, inner.count())
		assert.Equal(t, []string{order.EventTypeOrderPaid}, h.EventTypes())
	})

	t.Run("redelivery is skipped", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler(order.EventTypeOrderPaid)
		h := NewIdempotentHandler("wallet", inner, store, zap.NewNop())
		store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, nil)

		require.NoError(t, h.Handle(ctx, newOrderEvent(order.EventTypeOrderPaid)))

		assert.Zero(t, inner.count())
	})

	t.Run("failure releases the claim", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler(order.EventTypeOrderPaid)
		inner.err = errors.New("wallet version conflict")
		h := NewIdempotentHandler("wallet", inner, store, zap.NewNop())
		ev := newOrderEvent(order.EventTypeOrderPaid)
		key := "event:wallet:" + ev.EventID().String()
		store.On("MarkProcessed", ctx, key, mock.Anything).Return(true, nil)
		store.On("Release", ctx, key).Return(nil)

		err := h.Handle(ctx, ev)

		assert.EqualError(t, err, "wallet version conflict")
		store.AssertCalled(t, "Release", ctx, key)
	})

	t.Run("store outage still processes", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler(order.EventTypeOrderPaid)
		h := NewIdempotentHandler("wallet", inner, store, zap.NewNop())
		store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

		require.NoError(t, h.Handle(ctx, newOrderEvent(order.EventTypeOrderPaid)))

		assert.Equal(t, 1, inner.count())
	})

	t.Run("disabled skips the store", func(t *testing.T) {
		store := new(MockIdempotencyStore)
		inner := newTestHandler(order.EventTypeOrderPaid)
		h := NewIdempotentHandler("wallet", inner, store, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

		require.NoError(t, h.Handle(ctx, newOrderEvent(order.EventTypeOrderPaid)))

		assert.Equal(t, 1, inner.count())
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}
