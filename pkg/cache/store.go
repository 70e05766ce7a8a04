package cache

import (
	"context"
	"time"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

// Store is the persistent key-value store the cache reads and writes through.
// Write must be atomic for a single key.
type Store interface {
	// Read returns the entry for key. A missing key is (zero, false, nil).
	Read(ctx context.Context, key string) (models.CacheEntry, bool, error)
	// Write stores entry under key, replacing any previous entry.
	Write(ctx context.Context, key string, entry models.CacheEntry) error
	// Close releases resources.
	Close() error
}

// Counter is implemented by stores that can report how many entries they hold.
type Counter interface {
	Count(ctx context.Context, prefix string) (int64, error)
}

// Purger is implemented by stores that support operator-driven cleanup.
// Entries with a timestamp before olderThan are removed; the zero time removes all.
type Purger interface {
	Purge(ctx context.Context, prefix string, olderThan time.Time) (int64, error)
}
