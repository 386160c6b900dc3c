package cities

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/demographics"
)

// Named pairs a provider with a label for logs.
type Named struct {
	Name     string
	Provider Provider
}

// Fallback asks each source in turn until one answers.
type Fallback struct {
	sources []Named
	logger  *zap.Logger
}

// NewFallback builds a chain from the given sources, in priority order.
func NewFallback(logger *zap.Logger, sources ...Named) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{sources: sources, logger: logger.With(zap.String("component", "city-provider"))}
}

// Search returns the first non-empty result. An empty result from a source
// that worked is returned only when no later source has matches.
func (f *Fallback) Search(ctx context.Context, query string) ([]string, error) {
	var (
		lastErr error
		empty   []string
	)
	for _, s := range f.sources {
		names, err := s.Provider.Search(ctx, query)
		if err != nil {
			f.logger.Warn("city search failed", zap.String("source", s.Name), zap.String("query", query), zap.Error(err))
			lastErr = err
			continue
		}
		if len(names) > 0 {
			return names, nil
		}
		if empty == nil {
			empty = names
		}
	}

	if empty != nil {
		return empty, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "all city sources failed")
	}
	return []string{}, nil
}

// Lookup returns the first profile found. ErrNotFound is returned only when
// every source reports it.
func (f *Fallback) Lookup(ctx context.Context, name string) (*demographics.Profile, error) {
	var lastErr error
	notFound := 0
	for _, s := range f.sources {
		p, err := s.Provider.Lookup(ctx, name)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrNotFound) {
			notFound++
			continue
		}
		f.logger.Warn("city lookup failed", zap.String("source", s.Name), zap.String("city", name), zap.Error(err))
		lastErr = err
	}

	if lastErr == nil || notFound == len(f.sources) {
		return nil, eris.Wrapf(ErrNotFound, "lookup %q", name)
	}
	return nil, eris.Wrapf(lastErr, "lookup %q", name)
}
