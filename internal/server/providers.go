package server

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/cache"
	"github.com/kartoza/match-odds/internal/census"
	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/config"
	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/profiles"
)

// Providers is the city data chain: census first (unless offline), then the
// local profile database, with a cache in front of both.
type Providers struct {
	Provider *cities.Cached
	Profiles *profiles.Store
	Census   *census.Client
	Cache    cache.Store
}

// OpenProviders assembles the provider chain from cfg. The profile database
// is created and seeded with the bundled cities when empty.
func OpenProviders(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Providers, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.ProfileDB), 0755); err != nil {
		return nil, eris.Wrap(err, "server: create profile database directory")
	}
	store, err := profiles.Open(cfg.ProfileDB, false, logger)
	if err != nil {
		return nil, err
	}
	if _, err := store.SeedDefaults(ctx); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "server: seed profile database")
	}

	p := &Providers{Profiles: store}
	var sources []cities.Named

	if !cfg.Offline {
		cc := census.DefaultClientConfig()
		cc.BaseURL = cfg.Census.BaseURL
		cc.APIKey = cfg.Census.APIKey
		cc.Timeout = cfg.Census.Timeout
		cc.RequestsPerSecond = cfg.Census.RateLimit
		cc.Retry.MaxRetries = cfg.Census.MaxRetries
		p.Census = census.NewClient(cc, logger)
		sources = append(sources, cities.Named{Name: "census", Provider: p.Census})
	}
	sources = append(sources, cities.Named{Name: "profiles", Provider: store})

	p.Cache = openCache(ctx, cfg.Cache, logger)
	p.Provider = cities.NewCached(cities.NewFallback(logger, sources...), p.Cache, logger)
	return p, nil
}

// openCache prefers Redis when configured and falls back to an in-process
// cache if it cannot be reached.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) cache.Store {
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL)
		if err == nil {
			logger.Info("using redis cache")
			return rc
		}
		logger.Warn("redis cache not available, using memory cache", zap.Error(err))
	}
	return cache.NewMemory(cfg.Size, cfg.TTL)
}

// Close releases the cache and the profile database.
func (p *Providers) Close() error {
	var firstErr error
	if p.Cache != nil {
		if err := p.Cache.Close(); err != nil {
			firstErr = err
		}
	}
	if p.Profiles != nil {
		if err := p.Profiles.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadEstimator builds an estimator from the stage table at path, or the
// built-in table when path is empty.
func LoadEstimator(path string) (*funnel.Estimator, error) {
	if path == "" {
		return funnel.NewEstimator(funnel.DefaultTable()), nil
	}
	table, err := funnel.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return funnel.NewEstimator(table), nil
}
