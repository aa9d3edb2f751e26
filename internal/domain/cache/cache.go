// Package cache holds remote API results with expiry derived from match status.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// DefaultSweepInterval is how often Run removes expired entries.
const DefaultSweepInterval = 5 * time.Minute

type key struct {
	kind Kind
	id   string
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is a concurrency-safe TTL cache keyed by (kind, key). There is at
// most one entry per pair; a Put replaces it.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]entry
	now     func() time.Time
	log     logger.Logger
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[key]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put stores value under (kind, id) with the TTL for kind and status.
func (c *Cache) Put(kind Kind, id string, value any, status model.MatchStatus) {
	e := entry{value: value, storedAt: c.now(), ttl: TTL(kind, status)}

	c.mu.Lock()
	c.entries[key{kind, id}] = e
	n := len(c.entries)
	c.mu.Unlock()

	metrics.UpdateCacheSize(n)
}

// Get returns the value under (kind, id) when present and fresh. An expired
// entry is removed by the same call that reports the miss.
func (c *Cache) Get(kind Kind, id string) (any, bool) {
	k := key{kind, id}
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		metrics.RecordCacheMiss(string(kind))
		return nil, false
	}
	if !e.expired(now) {
		metrics.RecordCacheHit(string(kind))
		return e.value, true
	}

	c.mu.Lock()
	// Re-check: another writer may have refreshed the entry meanwhile.
	if cur, ok := c.entries[k]; ok {
		if !cur.expired(now) {
			c.mu.Unlock()
			metrics.RecordCacheHit(string(kind))
			return cur.value, true
		}
		delete(c.entries, k)
		metrics.RecordCacheEvictions("read", 1)
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.UpdateCacheSize(n)
	metrics.RecordCacheMiss(string(kind))
	return nil, false
}

// Lookup is a typed Get. A value of the wrong type counts as a miss.
func Lookup[T any](c *Cache, kind Kind, id string) (T, bool) {
	var zero T
	v, ok := c.Get(kind, id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.RecordCacheEvictions("sweep", removed)
	metrics.UpdateCacheSize(n)
	return removed
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 && c.log != nil {
				c.log.Debug(ctx, "cache sweep",
					logger.Int("removed", removed),
					logger.Int("remaining", c.Len()),
				)
			}
		}
	}
}
