package cache

import (
	"context"
	"time"

	"github.com/c360/seisgate/errors"
)

// NoopCache misses on every lookup and discards every write. Used when
// caching is disabled so callers never branch on a nil cache.
type NoopCache struct{}

// NewNoop returns the disabled cache.
func NewNoop() *NoopCache {
	return &NoopCache{}
}

// Get always misses.
func (*NoopCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.ErrCacheMiss
}

// Set discards the payload.
func (*NoopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Exists always reports false.
func (*NoopCache) Exists(context.Context, string) (bool, error) {
	return false, nil
}

// Delete is a no-op.
func (*NoopCache) Delete(context.Context, string) error {
	return nil
}

// Close is a no-op.
func (*NoopCache) Close() error {
	return nil
}
