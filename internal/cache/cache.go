// Package cache stores JSON-encoded values for the city providers, either in
// process or in Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned when the key is absent or expired.
	ErrMiss = errors.New("cache: key not found")

	// ErrKeyEmpty is returned for an empty key.
	ErrKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrSerialization wraps JSON encode and decode failures.
	ErrSerialization = errors.New("cache: serialization failed")
)

// Key prefixes.
const (
	PrefixProfile = "profile:"
	PrefixSearch  = "search:"
)

// DefaultTTL applies when a store is built with a zero TTL.
const DefaultTTL = 24 * time.Hour

// Store is a TTL cache of JSON values.
type Store interface {
	// Get decodes the value at key into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}
