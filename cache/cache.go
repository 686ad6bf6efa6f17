// Package cache provides the content-addressed response cache: fingerprint
// keys mapped to opaque merged payloads with a TTL.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/seisgate/errors"
)

// Defaults applied by Config.Validate.
const (
	DefaultKeyPrefix = "seisgate:response:"
	DefaultTTL       = 10 * time.Minute
	DefaultOpTimeout = 2 * time.Second
)

// Cache is a pure key to bytes map with expiry. A write must be visible to an
// immediately following Get (no buffering beyond the backing store's own
// consistency). The cache performs no request coalescing: concurrent misses
// on the same key each recompute independently.
type Cache interface {
	// Get returns the payload stored under key. A missing or expired key
	// returns errors.ErrCacheMiss; any other error is a backend failure.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key for ttl. A ttl of zero uses the
	// configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Exists reports whether key currently holds a live entry.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend connection.
	Close() error
}

// Config controls the response cache.
type Config struct {
	// Enabled selects the Redis cache; when false every lookup misses.
	Enabled bool `json:"enabled"`

	// Addr is the Redis host:port.
	Addr string `json:"addr"`

	// Password authenticates against Redis when set.
	Password string `json:"password,omitempty"`

	// DB selects the Redis logical database.
	DB int `json:"db"`

	// KeyPrefix namespaces all cache keys.
	KeyPrefix string `json:"key_prefix"`

	// TTL is the default entry lifetime.
	TTL time.Duration `json:"ttl"`

	// OpTimeout bounds each backend operation.
	OpTimeout time.Duration `json:"op_timeout"`
}

// DefaultConfig returns the standard cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Addr:      "localhost:6379",
		KeyPrefix: DefaultKeyPrefix,
		TTL:       DefaultTTL,
		OpTimeout: DefaultOpTimeout,
	}
}

// Validate applies defaults to unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "cache", "Validate",
			"addr is required when the cache is enabled")
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = DefaultOpTimeout
	}
	if c.TTL < 0 || c.OpTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl and op_timeout must be positive, got %v and %v", c.TTL, c.OpTimeout))
	}
	return nil
}

// New returns the cache selected by cfg: the Redis implementation when
// enabled, otherwise the noop cache. ctx bounds the initial connection
// attempt.
func New(ctx context.Context, cfg Config, options ...Option) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	return NewRedis(ctx, cfg, options...)
}
