package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// visitKeyTTL keeps a day's counters around long enough for the dashboard to
// read yesterday's total
const visitKeyTTL = 48 * time.Hour

// RedisVisitCounter counts unique storefront sessions per day with SETNX and
// INCR
type RedisVisitCounter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisVisitCounter creates a visit counter on a shared Redis client
func NewRedisVisitCounter(client redis.UniversalClient, keyPrefix string) *RedisVisitCounter {
	if keyPrefix == "" {
		keyPrefix = "mkt:visits:"
	}
	return &RedisVisitCounter{client: client, keyPrefix: keyPrefix}
}

// RecordVisit counts the session once for the day
func (c *RedisVisitCounter) RecordVisit(ctx context.Context, day, sessionID string) (bool, error) {
	first, err := c.client.SetNX(ctx, c.sessionKey(day, sessionID), "1", visitKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark visit: %w", err)
	}
	if !first {
		return false, nil
	}

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.countKey(day))
	pipe.Expire(ctx, c.countKey(day), visitKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count visit: %w", err)
	}
	return true, nil
}

// Visits returns the day's unique session count
func (c *RedisVisitCounter) Visits(ctx context.Context, day string) (int64, error) {
	n, err := c.client.Get(ctx, c.countKey(day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read visit count: %w", err)
	}
	return n, nil
}

func (c *RedisVisitCounter) sessionKey(day, sessionID string) string {
	return c.keyPrefix + day + ":session:" + sessionID
}

func (c *RedisVisitCounter) countKey(day string) string {
	return c.keyPrefix + day + ":count"
}

// InMemoryVisitCounter is the single-instance fallback when Redis is not
// configured. Only the current and previous day are kept.
type InMemoryVisitCounter struct {
	mu       sync.Mutex
	sessions map[string]map[string]struct{}
}

// NewInMemoryVisitCounter creates an empty in-memory visit counter
func NewInMemoryVisitCounter() *InMemoryVisitCounter {
	return &InMemoryVisitCounter{sessions: make(map[string]map[string]struct{})}
}

// RecordVisit counts the session once for the day
func (c *InMemoryVisitCounter) RecordVisit(_ context.Context, day, sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen, ok := c.sessions[day]
	if !ok {
		seen = make(map[string]struct{})
		c.sessions[day] = seen
		c.prune(day)
	}
	if _, dup := seen[sessionID]; dup {
		return false, nil
	}
	seen[sessionID] = struct{}{}
	return true, nil
}

// Visits returns the day's unique session count
func (c *InMemoryVisitCounter) Visits(_ context.Context, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.sessions[day])), nil
}

// prune drops days older than yesterday. Day keys are ISO dates, so string
// order is date order.
func (c *InMemoryVisitCounter) prune(today string) {
	t, err := time.Parse("2006-01-02", today)
	if err != nil {
		return
	}
	oldest := t.AddDate(0, 0, -1).Format("2006-01-02")
	for day := range c.sessions {
		if day < oldest {
			delete(c.sessions, day)
		}
	}
}
