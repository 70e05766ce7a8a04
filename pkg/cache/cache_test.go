package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/fxanalyst/pkg/cache"
	"github.com/pario-ai/fxanalyst/pkg/cache/memory"
	"github.com/pario-ai/fxanalyst/pkg/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T) (*cache.Cache, *memory.Store, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)}
	store := memory.New()
	c := cache.New(store, cache.WithClock(clk.Now))
	t.Cleanup(func() { _ = c.Close() })
	return c, store, clk
}

func TestGetNeverWritten(t *testing.T) {
	c, _, _ := newTestCache(t)

	data, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, data)
}

func TestSetThenGet(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "hello"))

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", data)
}

func TestExpiryWindow(t *testing.T) {
	c, store, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "p1", "result-A"))

	clk.Advance(30 * time.Minute)
	data, ok, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "result-A", data)

	clk.Advance(60 * time.Minute)
	_, ok, err = c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than an hour must be treated as absent")

	// The stale entry is left in place.
	_, found, err := store.Read(ctx, cache.DefaultPrefix+"p1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	c, _, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	clk.Advance(time.Hour)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "age equal to the TTL is still fresh")

	clk.Advance(time.Millisecond)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTwiceIsIdempotent(t *testing.T) {
	c, store, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "d"))
	require.NoError(t, c.Set(ctx, "k", "d"))

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "d", data)

	n, err := store.Count(ctx, cache.DefaultPrefix)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLastWriteWins(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "d1"))
	require.NoError(t, c.Set(ctx, "k", "d2"))

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "d2", data)
}

func TestRewriteRefreshesTimestamp(t *testing.T) {
	c, _, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "old"))
	clk.Advance(50 * time.Minute)
	require.NoError(t, c.Set(ctx, "k", "new"))
	clk.Advance(50 * time.Minute)

	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", data)
}

func TestKeysAreNamespaced(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	store := memory.New()
	c := cache.New(store, cache.WithClock(clk.Now), cache.WithPrefix("ns-"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	_, found, err := store.Read(ctx, "ns-k")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = store.Read(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEmptyPrefixKeepsDefault(t *testing.T) {
	store := memory.New()
	c := cache.New(store, cache.WithPrefix(""))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	_, found, err := store.Read(ctx, cache.DefaultPrefix+"k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSetStoresMillisecondTimestamp(t *testing.T) {
	clk := &fakeClock{now: time.Date(2024, 3, 8, 12, 0, 0, 1_999_999, time.UTC)}
	store := memory.New()
	c := cache.New(store, cache.WithClock(clk.Now))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	entry, found, err := store.Read(ctx, cache.DefaultPrefix+"k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2024, 3, 8, 12, 0, 0, 1_000_000, time.UTC), entry.Timestamp)

	// Expiry is measured from the stored millisecond, as on persistent stores.
	clk.Advance(time.Hour - 999_998)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCustomTTL(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	c := cache.New(memory.New(), cache.WithClock(clk.Now), cache.WithTTL(5*time.Minute))
	ctx := context.Background()
	assert.Equal(t, 5*time.Minute, c.TTL())

	require.NoError(t, c.Set(ctx, "k", "v"))
	clk.Advance(6 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "h1", "data"))
	_, _, _ = c.Get(ctx, "h1") // hit
	_, _, _ = c.Get(ctx, "h2") // miss

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats.Entries)
	assert.EqualValues(t, 1, *stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestPurgeExpiredOnly(t *testing.T) {
	c, store, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", "v"))
	clk.Advance(2 * time.Hour)
	require.NoError(t, c.Set(ctx, "fresh", "v"))

	n, err := c.Purge(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := store.Count(ctx, cache.DefaultPrefix)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	n, err = c.Purge(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

type brokenStore struct {
	err error
}

func (b *brokenStore) Read(context.Context, string) (models.CacheEntry, bool, error) {
	return models.CacheEntry{}, false, b.err
}

func (b *brokenStore) Write(context.Context, string, models.CacheEntry) error { return b.err }
func (b *brokenStore) Close() error                                          { return nil }

func TestStoreErrorsPropagate(t *testing.T) {
	errDown := errors.New("store unavailable")
	c := cache.New(&brokenStore{err: errDown})
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errDown)

	assert.ErrorIs(t, c.Set(ctx, "k", "v"), errDown)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats.Entries)

	_, err = c.Purge(ctx, false)
	assert.Error(t, err)
}
