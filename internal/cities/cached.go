package cities

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/cache"
	"github.com/kartoza/match-odds/internal/demographics"
)

// Cached memoizes a provider's searches and lookups in a cache store.
// Cache failures are logged and fall through to the provider.
type Cached struct {
	next   Provider
	store  cache.Store
	logger *zap.Logger
}

// NewCached wraps next with store.
func NewCached(next Provider, store cache.Store, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, logger: logger.With(zap.String("component", "city-cache"))}
}

func (c *Cached) Search(ctx context.Context, query string) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || IsShortQuery(q) {
		return c.next.Search(ctx, query)
	}

	key := cache.PrefixSearch + q
	var names []string
	err := c.store.Get(ctx, key, &names)
	if err == nil {
		return names, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("search cache read failed", zap.String("query", q), zap.Error(err))
	}

	names, err = c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, names); err != nil {
		c.logger.Warn("search cache write failed", zap.String("query", q), zap.Error(err))
	}
	return names, nil
}

func (c *Cached) Lookup(ctx context.Context, name string) (*demographics.Profile, error) {
	key := cache.PrefixProfile + strings.ToLower(strings.TrimSpace(name))

	var p demographics.Profile
	err := c.store.Get(ctx, key, &p)
	if err == nil {
		c.logger.Debug("profile cache hit", zap.String("city", name))
		return &p, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("profile cache read failed", zap.String("city", name), zap.Error(err))
	}

	profile, err := c.next.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, profile); err != nil {
		c.logger.Warn("profile cache write failed", zap.String("city", name), zap.Error(err))
	}
	return profile, nil
}

// Forget drops the cached profile for name, so the next lookup reaches the
// provider.
func (c *Cached) Forget(ctx context.Context, name string) error {
	return c.store.Delete(ctx, cache.PrefixProfile+strings.ToLower(strings.TrimSpace(name)))
}

// ForgetSearches drops every cached search result.
func (c *Cached) ForgetSearches(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, cache.PrefixSearch)
}
