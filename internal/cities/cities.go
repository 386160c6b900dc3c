// Package cities defines the City Data Provider used by the wizard's first
// question, plus decorators for caching and fallback between sources.
package cities

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kartoza/match-odds/internal/demographics"
)

// ErrNotFound is returned by Lookup when no source knows the city.
var ErrNotFound = errors.New("city not found")

// MinQueryLength is the shortest query that triggers a search.
const MinQueryLength = 2

// DefaultCities are offered before the user types anything.
var DefaultCities = []string{
	"New York city, New York",
	"Los Angeles city, California",
	"Chicago city, Illinois",
	"San Francisco city, California",
	"Miami city, Florida",
}

// Provider resolves city names and their demographic baselines.
type Provider interface {
	// Search returns city names matching a free-text query.
	Search(ctx context.Context, query string) ([]string, error)
	// Lookup returns the validated profile for an exact city name.
	Lookup(ctx context.Context, name string) (*demographics.Profile, error)
}

// Defaults returns a copy of DefaultCities.
func Defaults() []string {
	out := make([]string, len(DefaultCities))
	copy(out, DefaultCities)
	return out
}

// IsShortQuery reports whether query is non-empty but too short to search.
func IsShortQuery(query string) bool {
	q := strings.TrimSpace(query)
	return q != "" && utf8.RuneCountInString(q) < MinQueryLength
}

// Filter applies the search rules to a list of known names: an empty query
// yields the defaults, a short one yields nothing, anything else is a
// case-insensitive substring match in list order.
func Filter(names []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Defaults()
	}
	if IsShortQuery(q) {
		return []string{}
	}

	matches := []string{}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, name)
		}
	}
	return matches
}
