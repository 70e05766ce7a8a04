package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

// DefaultTTL is the expiry window applied when none is configured.
const DefaultTTL = time.Hour

// DefaultPrefix namespaces cache keys inside a shared store.
const DefaultPrefix = "analysis-cache-"

// Cache is a time-bounded response cache layered over a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	prefix string
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the expiry window. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix overrides the key namespace. An empty prefix is ignored.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache over the given store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the data cached under key. ok is false when the key was never
// written or its entry is older than the TTL; stale entries stay in the store.
// Store failures are returned as-is, wrapped.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	entry, found, err := c.store.Read(ctx, c.prefix+key)
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	if !found {
		c.misses.Add(1)
		return "", false, nil
	}

	if entry.Age(c.now()) > c.ttl {
		c.misses.Add(1)
		return "", false, nil
	}

	c.hits.Add(1)
	return entry.Data, true, nil
}

// Set stores data under key with the current time, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key, data string) error {
	entry := models.CacheEntry{
		Data:      data,
		Timestamp: c.now().UTC().Truncate(time.Millisecond),
	}
	if err := c.store.Write(ctx, c.prefix+key, entry); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// TTL returns the expiry window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Stats returns hit/miss counters and, when the store supports it, the entry count.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if counter, ok := c.store.(Counter); ok {
		n, err := counter.Count(ctx, c.prefix)
		if err != nil {
			return stats, fmt.Errorf("cache stats: %w", err)
		}
		stats.Entries = &n
	}
	return stats, nil
}

// Purge removes entries from the store. With expiredOnly, only entries older
// than the TTL are removed. It is an operator action; Get and Set never delete.
func (c *Cache) Purge(ctx context.Context, expiredOnly bool) (int64, error) {
	purger, ok := c.store.(Purger)
	if !ok {
		return 0, fmt.Errorf("cache purge: store does not support purging")
	}
	var olderThan time.Time
	if expiredOnly {
		olderThan = c.now().Add(-c.ttl)
	}
	n, err := purger.Purge(ctx, c.prefix, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return n, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
