// Package sqlite stores cache entries in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

// Store is a cache Store backed by SQLite.
type Store struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// New opens (or creates) the database at dbPath and migrates the schema.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Read returns the entry stored under key.
func (s *Store) Read(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var data string
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT data, created_at FROM cache_entries WHERE cache_key = ?`,
		key,
	).Scan(&data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache read: %w", err)
	}

	return models.CacheEntry{
		Data:      data,
		Timestamp: time.UnixMilli(createdAt).UTC(),
	}, true, nil
}

// Write stores entry under key, replacing any existing row.
func (s *Store) Write(ctx context.Context, key string, entry models.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (cache_key, data, created_at) VALUES (?, ?, ?)`,
		key, entry.Data, entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Count returns the number of rows whose key starts with prefix.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE substr(cache_key, 1, length(?)) = ?`,
		prefix, prefix,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Purge removes prefixed rows written before olderThan, or all prefixed rows
// when olderThan is zero.
func (s *Store) Purge(ctx context.Context, prefix string, olderThan time.Time) (int64, error) {
	query := `DELETE FROM cache_entries WHERE substr(cache_key, 1, length(?)) = ?`
	args := []any{prefix, prefix}
	if !olderThan.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, olderThan.UnixMilli())
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
