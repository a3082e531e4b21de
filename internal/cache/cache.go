// Package cache provides the TTL cache used in front of profile lookups.
//
// Two implementations are available:
// - Redis: shared cache for multi-instance deployments
// - Memory: process-local cache for development and tests
//
// Both are constructed explicitly and must be closed by their owner.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores opaque byte values with a time-to-live.
type Cache interface {
	// Get returns the value for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases resources held by the cache.
	Close() error
}
