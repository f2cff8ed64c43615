package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the Redis-backed components, or their in-memory fallbacks
// when Redis is not configured
type Stores struct {
	// Client is nil when running on the in-memory fallbacks
	Client      redis.UniversalClient
	Idempotency shared.IdempotencyStore
	Visits      VisitCounter
}

// VisitCounter counts unique sessions per day
type VisitCounter interface {
	RecordVisit(ctx context.Context, day, sessionID string) (bool, error)
	Visits(ctx context.Context, day string) (int64, error)
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// Factory creates the cache stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient connects to Redis and pings it
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateStores returns Redis-backed stores when Redis is configured and
// reachable, and in-memory ones otherwise
func (f *Factory) CreateStores() (*Stores, error) {
	if f.redisConfig.Enabled() {
		client, err := NewRedisClient(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis for idempotency and visit counting",
				zap.String("addr", f.redisConfig.Addr()))
			return &Stores{
				Client:      client,
				Idempotency: NewRedisIdempotencyStoreWithClient(client, ""),
				Visits:      NewRedisVisitCounter(client, ""),
			}, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Callbacks may be processed twice across instances.",
			zap.Error(err),
		)
	}

	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Visits:      NewInMemoryVisitCounter(),
	}, nil
}

// Close releases the stores and the Redis client
func (s *Stores) Close() error {
	if err := s.Idempotency.Close(); err != nil {
		return err
	}
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}
