// Package redis stores cache entries in Redis as JSON strings.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

// Store is a cache Store backed by Redis.
// Keys carry no Redis TTL; expiry is decided by the cache at read time.
type Store struct {
	client *redis.Client
}

// New connects to the Redis server described by url
// (redis://[user:pass@]host:port/db).
func New(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Read returns the entry stored under key.
func (s *Store) Read(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("decode redis entry: %w", err)
	}
	return entry, true, nil
}

// Write stores entry under key with a single SET.
func (s *Store) Write(ctx context.Context, key string, entry models.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode redis entry: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Count returns the number of keys starting with prefix.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	var n int64
	iter := s.client.Scan(ctx, 0, matchPattern(prefix), 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Purge removes prefixed keys written before olderThan, or all of them
// when olderThan is zero.
func (s *Store) Purge(ctx context.Context, prefix string, olderThan time.Time) (int64, error) {
	var n int64
	iter := s.client.Scan(ctx, 0, matchPattern(prefix), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !olderThan.IsZero() {
			entry, ok, err := s.Read(ctx, key)
			if err == nil && (!ok || !entry.Timestamp.Before(olderThan)) {
				continue
			}
		}
		deleted, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return n, fmt.Errorf("redis del: %w", err)
		}
		n += deleted
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// matchPattern escapes glob metacharacters in prefix and appends "*".
func matchPattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(prefix) + "*"
}
