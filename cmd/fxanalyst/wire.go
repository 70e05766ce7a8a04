package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/fxanalyst/pkg/analysis"
	"github.com/pario-ai/fxanalyst/pkg/cache"
	"github.com/pario-ai/fxanalyst/pkg/cache/bolt"
	"github.com/pario-ai/fxanalyst/pkg/cache/memory"
	"github.com/pario-ai/fxanalyst/pkg/cache/postgres"
	"github.com/pario-ai/fxanalyst/pkg/cache/redis"
	"github.com/pario-ai/fxanalyst/pkg/cache/sqlite"
	"github.com/pario-ai/fxanalyst/pkg/config"
	"github.com/pario-ai/fxanalyst/pkg/llm"
	"github.com/pario-ai/fxanalyst/pkg/router"
)

// openStore opens the backend named by cfg.Cache.Store.
func openStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		return sqlite.New(cfg.DSN)
	case config.StoreBolt:
		return bolt.Open(cfg.DSN, bolt.Options{})
	case config.StoreRedis:
		return redis.New(ctx, cfg.DSN)
	case config.StorePostgres:
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown cache store %q", cfg.Store)
	}
}

// openCache opens the configured store and wraps it in a Cache.
func openCache(ctx context.Context, cfg config.CacheConfig) (*cache.Cache, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return cache.New(store, cache.WithTTL(cfg.TTL), cache.WithPrefix(cfg.Prefix)), nil
}

// newRequester wires the LLM client and, when enabled, the cache.
// The returned Cache is nil when caching is disabled; callers close it.
func newRequester(ctx context.Context, cfg *config.Config, useCache bool) (*analysis.Requester, *cache.Cache, error) {
	client := llm.New(router.New(cfg))
	if !useCache || !cfg.Cache.Enabled {
		return analysis.New(&cfg.Settings, client, nil), nil, nil
	}
	c, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	return analysis.New(&cfg.Settings, client, c), c, nil
}
