// Package querycache is a Redis-backed response cache for search queries,
// with singleflight collapsing of concurrent identical misses. When Redis is
// unavailable the service runs uncached; cache failures are logged and never
// surface to the caller.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/studylab/lessonsearch/pkg/redis"
)

const keyPrefix = "search:"

// Cache caches values of type T keyed by normalized query and limit.
type Cache[T any] struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over the given Redis client.
func New[T any](client *pkgredis.Client, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached value for (query, limit), if any.
func (c *Cache[T]) Get(ctx context.Context, query string, limit int) (T, bool) {
	var zero T
	key := c.buildKey(query, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return zero, false
	}
	var value T
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return value, true
}

// Set stores a value for (query, limit).
func (c *Cache[T]) Set(ctx context.Context, query string, limit int, value T) {
	key := c.buildKey(query, limit)
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value or computes and stores it, with
// concurrent identical misses collapsed into one computation. The boolean
// reports whether the value came from the cache.
func (c *Cache[T]) GetOrCompute(ctx context.Context, query string, limit int, computeFn func() (T, error)) (T, bool, error) {
	if value, ok := c.Get(ctx, query, limit); ok {
		return value, true, nil
	}
	key := c.buildKey(query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.Get(ctx, query, limit); ok {
			return value, nil
		}
		value, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Invalidate drops every cached search response. Called after rebuilds,
// since any cached result may reference stale documents.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counters.
func (c *Cache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache[T]) buildKey(query string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", query, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
