package cache

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/c360/seisgate/errors"
	"github.com/c360/seisgate/pkg/retry"
)

// RedisCache stores payloads in Redis under prefixed fingerprint keys.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping before
// returning. The dial is retried briefly so a cache restarting alongside the
// gateway does not fail startup.
func NewRedis(ctx context.Context, cfg Config, options ...Option) (*RedisCache, error) {
	opts := applyOptions(options...)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(ctx, retry.Quick(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		client.Close()
		return nil, errors.WrapTransient(err, "RedisCache", "NewRedis", "ping "+cfg.Addr)
	}

	if opts.logger != nil {
		opts.logger.Debug("response cache connected", "addr", cfg.Addr, "db", cfg.DB)
	}

	return &RedisCache{
		client:  client,
		prefix:  cfg.KeyPrefix,
		ttl:     cfg.TTL,
		timeout: cfg.OpTimeout,
		logger:  opts.logger,
	}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get returns the payload under key, or errors.ErrCacheMiss when absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "RedisCache", "Get", "redis get")
	}
	return val, nil
}

// Set stores the payload under key. A zero ttl uses the configured default.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return errors.WrapTransient(err, "RedisCache", "Set", "redis set")
	}
	return nil
}

// Exists reports whether key holds a live entry.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, errors.WrapTransient(err, "RedisCache", "Exists", "redis exists")
	}
	return n > 0, nil
}

// Delete removes key. Absent keys are ignored.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return errors.WrapTransient(err, "RedisCache", "Delete", "redis del")
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping verifies the backend is reachable, for health checks.
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.WrapTransient(err, "RedisCache", "Ping", "redis ping")
	}
	return nil
}
