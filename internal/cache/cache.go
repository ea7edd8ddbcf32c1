// Package cache holds the redis-backed summary cache. A nil cache is a
// valid no-op so the rest of the code never checks whether caching is on.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kozaktomas/attendease/internal/database"
)

// SummaryCache caches monthly summaries so repeated dashboard reads do not
// hit the aggregation query. Every write to a month's attendance must be
// followed by Invalidate for that month.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis with short timeouts. Returns nil when addr is
// empty, which disables caching.
func New(addr string, ttl time.Duration) *SummaryCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(userID int64, month, year int) string {
	return fmt.Sprintf("summary:%d:%d-%02d", userID, year, month)
}

// Get returns the cached summary or nil on miss. Redis failures count as
// misses; the caller recomputes.
func (c *SummaryCache) Get(ctx context.Context, userID int64, month, year int) *database.MonthlySummary {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, summaryKey(userID, month, year)).Bytes()
	if err != nil {
		return nil
	}
	var s database.MonthlySummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// Set stores a summary under the cache TTL.
func (c *SummaryCache) Set(ctx context.Context, s *database.MonthlySummary) error {
	if c == nil || s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode summary: %w", err)
	}
	return c.client.Set(ctx, summaryKey(s.UserID, s.Month, s.Year), raw, c.ttl).Err()
}

// Invalidate drops the cached summary for one user month.
func (c *SummaryCache) Invalidate(ctx context.Context, userID int64, month, year int) error {
	if c == nil {
		return nil
	}
	err := c.client.Del(ctx, summaryKey(userID, month, year)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Healthy verifies redis connectivity. A nil cache reports healthy since
// there is nothing to fail.
func (c *SummaryCache) Healthy(ctx context.Context) bool {
	if c == nil {
		return true
	}
	return c.client.Ping(ctx).Err() == nil
}

// Close releases the redis connection.
func (c *SummaryCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
