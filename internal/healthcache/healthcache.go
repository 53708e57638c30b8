// Package healthcache fronts communicator.ProbeAll with an optional
// Redis-backed TTL cache. ProbeAll hits every participant's health
// endpoint, which is cheap for one operator request but wasteful if
// the "GET /health" HTTP route gets polled every few seconds by an
// external monitor — caching the last probe for a few seconds absorbs
// that without making a stale participant look healthy for long.
//
// Not part of the original saga algorithm; an enrichment the
// go-redis/v9 dependency in the pack earns a home for (see
// SPEC_FULL.md §2).
package healthcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "saga:health:probe_all"

// Prober is the subset of communicator.Communicator this cache needs.
type Prober interface {
	ProbeAll(ctx context.Context) map[string]bool
}

// Cache wraps a Prober with a Redis-backed TTL cache. A nil *Cache is
// safe to call: ProbeAll returns nil and Close is a no-op. It holds no
// Prober to fall back on, so callers that run without Redis configured
// use the Prober directly instead.
type Cache struct {
	rdb    *redis.Client
	prober Prober
	ttl    time.Duration
}

// New builds a Cache backed by addr (Redis "host:port") with entries
// held for ttl.
func New(addr string, ttl time.Duration, prober Prober) *Cache {
	return &Cache{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		prober: prober,
		ttl:    ttl,
	}
}

// ProbeAll returns the cached probe result if one is still fresh,
// otherwise probes every participant and repopulates the cache.
func (c *Cache) ProbeAll(ctx context.Context) map[string]bool {
	if c == nil {
		return nil
	}

	if cached, ok := c.readCache(ctx); ok {
		return cached
	}

	result := c.prober.ProbeAll(ctx)
	c.writeCache(ctx, result)
	return result
}

func (c *Cache) readCache(ctx context.Context) (map[string]bool, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var result map[string]bool
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return result, true
}

func (c *Cache) writeCache(ctx context.Context, result map[string]bool) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey, raw, c.ttl)
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
