package cache

import "log/slog"

// Option configures cache behavior using the functional options pattern.
type Option func(*cacheOptions)

type cacheOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for backend diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *cacheOptions) {
		opts.logger = logger
	}
}

func applyOptions(options ...Option) *cacheOptions {
	opts := &cacheOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
