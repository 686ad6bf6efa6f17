package routing

import (
	"log/slog"

	"github.com/c360/seisgate/metric"
)

// Option configures client behavior using the functional options pattern.
type Option func(*clientOptions)

type clientOptions struct {
	registry *metric.MetricsRegistry
	logger   *slog.Logger
}

// WithMetrics enables Prometheus metrics for resolution calls. If registry
// is nil, this option is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(opts *clientOptions) {
		if registry != nil {
			opts.registry = registry
		}
	}
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

func applyOptions(options ...Option) *clientOptions {
	opts := &clientOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
