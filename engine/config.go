package engine

import (
	"fmt"
	"time"

	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/pkg/spool"
)

// Defaults applied by Config.Validate.
const (
	DefaultSplitFactor         = 2
	DefaultMinDuration         = 10 * time.Minute
	DefaultGlobalConcurrency   = 64
	DefaultEndpointConcurrency = 8
	DefaultStreamTimeout       = 5 * time.Minute
	DefaultProgressTimeout     = 30 * time.Second
	DefaultDialTimeout         = 5 * time.Second
	DefaultHeaderTimeout       = 30 * time.Second
	DefaultMaxConnsPerHost     = 16
	DefaultCacheMaxBytes       = 16 << 20
)

// Config controls federated request processing. Each request takes a value
// snapshot at arrival, so a config change never affects requests already in
// flight.
type Config struct {
	// SplitFactor is how many sub-epochs an epoch divides into when a
	// backend rejects it as too large. At least 2.
	SplitFactor int `json:"split_factor"`

	// MinDuration is the smallest sub-epoch the splitter will produce.
	// A 413 on an epoch at or below this granularity is a permanent
	// failure.
	MinDuration time.Duration `json:"min_duration"`

	// GlobalConcurrency caps concurrently running sub-requests across all
	// endpoints.
	GlobalConcurrency int64 `json:"global_concurrency"`

	// EndpointConcurrency caps concurrently running sub-requests per
	// endpoint.
	EndpointConcurrency int64 `json:"endpoint_concurrency"`

	// StreamTimeout bounds one federated request end to end.
	StreamTimeout time.Duration `json:"stream_timeout"`

	// ProgressTimeout is the stall watchdog: the longest a backend body
	// read may go without delivering bytes.
	ProgressTimeout time.Duration `json:"progress_timeout"`

	// DialTimeout bounds backend connection establishment.
	DialTimeout time.Duration `json:"dial_timeout"`

	// HeaderTimeout bounds the wait for backend response headers.
	HeaderTimeout time.Duration `json:"header_timeout"`

	// MaxConnsPerHost caps connections per backend. The engine owns its
	// own pool, independent of the routing client's.
	MaxConnsPerHost int `json:"max_conns_per_host"`

	// RolloverBytes is the per-slot threshold past which response bytes
	// spill from memory to a temp file.
	RolloverBytes int `json:"rollover_bytes"`

	// TempDir is where spill files are created; empty means the system
	// temp directory.
	TempDir string `json:"temp_dir,omitempty"`

	// CacheMaxBytes is the largest merged payload the engine will store
	// in the response cache.
	CacheMaxBytes int64 `json:"cache_max_bytes"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		SplitFactor:         DefaultSplitFactor,
		MinDuration:         DefaultMinDuration,
		GlobalConcurrency:   DefaultGlobalConcurrency,
		EndpointConcurrency: DefaultEndpointConcurrency,
		StreamTimeout:       DefaultStreamTimeout,
		ProgressTimeout:     DefaultProgressTimeout,
		DialTimeout:         DefaultDialTimeout,
		HeaderTimeout:       DefaultHeaderTimeout,
		MaxConnsPerHost:     DefaultMaxConnsPerHost,
		RolloverBytes:       spool.DefaultRolloverBytes,
		CacheMaxBytes:       DefaultCacheMaxBytes,
	}
}

// Validate applies defaults to unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if c.SplitFactor == 0 {
		c.SplitFactor = DefaultSplitFactor
	}
	if c.MinDuration == 0 {
		c.MinDuration = DefaultMinDuration
	}
	if c.GlobalConcurrency == 0 {
		c.GlobalConcurrency = DefaultGlobalConcurrency
	}
	if c.EndpointConcurrency == 0 {
		c.EndpointConcurrency = DefaultEndpointConcurrency
	}
	if c.StreamTimeout == 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	if c.ProgressTimeout == 0 {
		c.ProgressTimeout = DefaultProgressTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.HeaderTimeout == 0 {
		c.HeaderTimeout = DefaultHeaderTimeout
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	if c.RolloverBytes == 0 {
		c.RolloverBytes = spool.DefaultRolloverBytes
	}
	if c.CacheMaxBytes == 0 {
		c.CacheMaxBytes = DefaultCacheMaxBytes
	}

	if c.SplitFactor < 2 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("split_factor must be at least 2, got %d", c.SplitFactor))
	}
	if c.MinDuration < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("min_duration must be positive, got %v", c.MinDuration))
	}
	if c.GlobalConcurrency < 1 || c.EndpointConcurrency < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			"concurrency ceilings must be at least 1")
	}
	if c.EndpointConcurrency > c.GlobalConcurrency {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("endpoint_concurrency %d exceeds global_concurrency %d",
				c.EndpointConcurrency, c.GlobalConcurrency))
	}
	if c.StreamTimeout < 0 || c.ProgressTimeout < 0 || c.DialTimeout < 0 || c.HeaderTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			"timeouts must be positive")
	}
	if c.RolloverBytes < 0 || c.CacheMaxBytes < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			"rollover_bytes and cache_max_bytes must be positive")
	}
	return nil
}
