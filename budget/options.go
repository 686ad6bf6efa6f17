package budget

import (
	"log/slog"

	"github.com/c360/seisgate/metric"
)

// Option configures tracker behavior using the functional options pattern.
type Option func(*trackerOptions)

type trackerOptions struct {
	registry *metric.MetricsRegistry
	logger   *slog.Logger
}

// WithMetrics enables Prometheus metrics for budget decisions. If registry is
// nil, this option is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(opts *trackerOptions) {
		if registry != nil {
			opts.registry = registry
		}
	}
}

// WithLogger sets the logger used for suppression warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *trackerOptions) {
		opts.logger = logger
	}
}

func applyOptions(options ...Option) *trackerOptions {
	opts := &trackerOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
