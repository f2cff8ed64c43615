package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

// maxNotifyPayload stays under the Postgres 8000 byte NOTIFY limit
const maxNotifyPayload = 7900

// Notifier executes NOTIFY statements
type Notifier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGBridge relays changes between instances over Postgres LISTEN/NOTIFY.
// Local events are sent with this instance's origin; notifications from
// other origins go to the local hub only, never back onto the event bus.
type PGBridge struct {
	pool       *pgxpool.Pool
	notifier   Notifier
	channel    string
	origin     string
	serializer *event.EventSerializer
	hub        *Hub
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewPGBridge creates a bridge. pool may be nil in tests that only exercise
// the notify and receive paths through notifier.
func NewPGBridge(pool *pgxpool.Pool, notifier Notifier, channel, origin string, serializer *event.EventSerializer, hub *Hub, logger *zap.Logger) *PGBridge {
	if notifier == nil && pool != nil {
		notifier = pool
	}
	return &PGBridge{
		pool:       pool,
		notifier:   notifier,
		channel:    channel,
		origin:     origin,
		serializer: serializer,
		hub:        hub,
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Origin returns the identifier stamped on outgoing notifications
func (b *PGBridge) Origin() string {
	return b.origin
}

// EventTypes returns nil so the bridge forwards every event
func (b *PGBridge) EventTypes() []string {
	return nil
}

// Handle publishes a local event to the other instances
func (b *PGBridge) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if ev.Topic() == "" || !b.serializer.IsRegistered(ev.EventType()) {
		return nil
	}
	data, err := b.serializer.Encode(b.origin, ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	if len(data) > maxNotifyPayload {
		b.logger.Warn("change too large for NOTIFY, peers will miss it",
			zap.String("event_type", ev.EventType()),
			zap.Int("size", len(data)),
		)
		return nil
	}
	if _, err := b.notifier.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel, string(data)); err != nil {
		return fmt.Errorf("notify %s: %w", b.channel, err)
	}
	return nil
}

// Run listens until ctx is cancelled, reconnecting after failures
func (b *PGBridge) Run(ctx context.Context) error {
	if b.pool == nil {
		return errors.New("realtime bridge has no connection pool")
	}
	b.logger.Info("realtime bridge listening", zap.String("channel", b.channel), zap.String("origin", b.origin))
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Warn("realtime listener stopped, reconnecting", zap.Error(err), zap.Duration("delay", b.retryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retryDelay):
		}
	}
}

func (b *PGBridge) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		b.receive(ctx, n.Payload)
	}
}

// receive hands a remote notification to the hub
func (b *PGBridge) receive(ctx context.Context, payload string) {
	env, ev, err := b.serializer.Decode([]byte(payload))
	if err != nil {
		b.logger.Warn("dropping undecodable notification", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	if err := b.hub.Handle(ctx, ev); err != nil {
		b.logger.Warn("failed to relay remote change", zap.String("event_type", env.Type), zap.Error(err))
	}
}

var _ shared.EventHandler = (*PGBridge)(nil)
