// Package postgres stores cache entries in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pario-ai/fxanalyst/pkg/models"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS analysis_cache (
	cache_key  TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// Store is a cache Store backed by PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// New opens a pool for dsn and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}
	s, err := NewFromPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewFromPool wraps an existing pool and migrates the schema.
func NewFromPool(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, createCacheTable); err != nil {
		return nil, fmt.Errorf("migrate postgres cache: %w", err)
	}
	return &Store{db: pool}, nil
}

// Read returns the entry stored under key.
func (s *Store) Read(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var entry models.CacheEntry
	err := s.db.QueryRow(ctx,
		`SELECT data, created_at FROM analysis_cache WHERE cache_key = $1`,
		key,
	).Scan(&entry.Data, &entry.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("postgres read: %w", err)
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return entry, true, nil
}

// Write upserts entry under key.
func (s *Store) Write(ctx context.Context, key string, entry models.CacheEntry) error {
	query := `
		INSERT INTO analysis_cache (cache_key, data, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at
	`
	if _, err := s.db.Exec(ctx, query, key, entry.Data, entry.Timestamp); err != nil {
		return fmt.Errorf("postgres write: %w", err)
	}
	return nil
}

// Count returns the number of rows whose key starts with prefix.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_cache WHERE starts_with(cache_key, $1)`,
		prefix,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres count: %w", err)
	}
	return n, nil
}

// Purge removes prefixed rows written before olderThan, or all prefixed rows
// when olderThan is zero.
func (s *Store) Purge(ctx context.Context, prefix string, olderThan time.Time) (int64, error) {
	query := `DELETE FROM analysis_cache WHERE starts_with(cache_key, $1)`
	args := []any{prefix}
	if !olderThan.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, olderThan)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
