package models

import (
	"encoding/json"
	"time"
)

// CacheEntry stores a cached analysis result.
// Entries are written whole and never modified in place.
type CacheEntry struct {
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// cacheEntryWire is the persisted layout: timestamp in Unix milliseconds.
type cacheEntryWire struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Age returns how long ago the entry was written, relative to now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// MarshalJSON encodes the entry as {"data": ..., "timestamp": <unix ms>}.
func (e CacheEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(cacheEntryWire{
		Data:      e.Data,
		Timestamp: e.Timestamp.UnixMilli(),
	})
}

// UnmarshalJSON decodes the {"data", "timestamp"} layout.
func (e *CacheEntry) UnmarshalJSON(b []byte) error {
	var w cacheEntryWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.Data = w.Data
	e.Timestamp = time.UnixMilli(w.Timestamp).UTC()
	return nil
}

// CacheStats reports cache performance metrics.
// Entries is nil when the backing store cannot count its records.
type CacheStats struct {
	Entries *int64 `json:"entries,omitempty"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}
