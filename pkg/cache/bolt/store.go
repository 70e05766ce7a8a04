// Package bolt stores cache entries in a bbolt file.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

const defaultBucket = "analysis_cache"

// Options configures a Store.
type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// Store is a cache Store backed by a single Bolt bucket.
// Values are the JSON encoding of models.CacheEntry.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &Store{db: db, bucket: bucket}, nil
}

// Read returns the entry stored under key.
func (s *Store) Read(_ context.Context, key string) (models.CacheEntry, bool, error) {
	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("bolt read: %w", err)
	}
	if raw == nil {
		return models.CacheEntry{}, false, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("decode bolt entry: %w", err)
	}
	return entry, true, nil
}

// Write stores entry under key in a single transaction.
func (s *Store) Write(_ context.Context, key string, entry models.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode bolt entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), raw)
	})
}

// Count returns the number of keys starting with prefix.
func (s *Store) Count(_ context.Context, prefix string) (int64, error) {
	var n int64
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Purge removes prefixed entries written before olderThan, or all of them
// when olderThan is zero.
func (s *Store) Purge(_ context.Context, prefix string, olderThan time.Time) (int64, error) {
	var n int64
	p := []byte(prefix)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var doomed [][]byte
		c := b.Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if !olderThan.IsZero() {
				var entry models.CacheEntry
				if err := json.Unmarshal(v, &entry); err == nil && !entry.Timestamp.Before(olderThan) {
					continue
				}
			}
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
