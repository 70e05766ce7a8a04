// Package memory is an in-process Store, used by tests and for throwaway runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

// Store keeps cache entries in a map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]models.CacheEntry)}
}

// Read returns the entry for key.
func (s *Store) Read(_ context.Context, key string) (models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

// Write replaces the entry for key.
func (s *Store) Write(_ context.Context, key string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

// Count returns the number of entries whose key starts with prefix.
func (s *Store) Count(_ context.Context, prefix string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

// Purge removes prefixed entries written before olderThan, or all of them
// when olderThan is zero.
func (s *Store) Purge(_ context.Context, prefix string, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if olderThan.IsZero() || e.Timestamp.Before(olderThan) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
