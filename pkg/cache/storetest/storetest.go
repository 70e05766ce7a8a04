// Package storetest is a conformance suite for cache.Store implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/fxanalyst/pkg/cache"
	"github.com/pario-ai/fxanalyst/pkg/models"
)

// Run exercises newStore against the Store contract. newStore must return an
// empty store; the suite closes it.
func Run(t *testing.T, newStore func(t *testing.T) cache.Store) {
	t.Helper()

	ts := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

	t.Run("ReadMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, ok, err := s.Read(context.Background(), "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WriteRead", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "k", models.CacheEntry{Data: "payload", Timestamp: ts}))

		got, ok, err := s.Read(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "payload", got.Data)
		assert.True(t, got.Timestamp.Equal(ts), "timestamp %v != %v", got.Timestamp, ts)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "k", models.CacheEntry{Data: "d1", Timestamp: ts}))
		require.NoError(t, s.Write(ctx, "k", models.CacheEntry{Data: "d2", Timestamp: ts.Add(time.Minute)}))

		got, ok, err := s.Read(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "d2", got.Data)
		assert.True(t, got.Timestamp.Equal(ts.Add(time.Minute)))
	})

	t.Run("ConcurrentWritesSameKey", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Write(ctx, "k", models.CacheEntry{Data: fmt.Sprintf("d%d", i), Timestamp: ts})
			}(i)
		}
		wg.Wait()

		got, ok, err := s.Read(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Regexp(t, `^d[0-7]$`, got.Data)
	})

	t.Run("CountAndPurge", func(t *testing.T) {
		s := open(t, newStore)
		counter, okC := s.(cache.Counter)
		purger, okP := s.(cache.Purger)
		if !okC || !okP {
			t.Skip("store does not support admin operations")
		}
		ctx := context.Background()
		require.NoError(t, s.Write(ctx, "ns-old", models.CacheEntry{Data: "a", Timestamp: ts}))
		require.NoError(t, s.Write(ctx, "ns-new", models.CacheEntry{Data: "b", Timestamp: ts.Add(2 * time.Hour)}))
		require.NoError(t, s.Write(ctx, "other", models.CacheEntry{Data: "c", Timestamp: ts}))

		n, err := counter.Count(ctx, "ns-")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = purger.Purge(ctx, "ns-", ts.Add(time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, ok, err := s.Read(ctx, "ns-new")
		require.NoError(t, err)
		assert.True(t, ok)

		n, err = purger.Purge(ctx, "ns-", time.Time{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, ok, err = s.Read(ctx, "other")
		require.NoError(t, err)
		assert.True(t, ok, "purge must not touch keys outside the prefix")
	})
}

func open(t *testing.T, newStore func(t *testing.T) cache.Store) cache.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
