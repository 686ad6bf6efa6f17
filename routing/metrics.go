package routing

import (
	"github.com/c360/seisgate/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// routingMetrics holds Prometheus metrics for route resolution.
type routingMetrics struct {
	resolutions     *prometheus.CounterVec // By status (success/failure)
	resolveDuration prometheus.Histogram
}

// newRoutingMetrics creates and registers routing metrics with the provided
// registry.
func newRoutingMetrics(registry *metric.MetricsRegistry) (*routingMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &routingMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "routing",
			Name:      "resolutions_total",
			Help:      "Total number of route resolution calls",
		}, []string{"status"}), // status: success, failure

		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seisgate",
			Subsystem: "routing",
			Name:      "resolve_duration_seconds",
			Help:      "Route resolution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
	}

	if err := registry.RegisterCounterVec("routing", "resolutions", m.resolutions); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("routing", "resolve_duration", m.resolveDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordResolve records one resolution call.
func (m *routingMetrics) recordResolve(status string, seconds float64) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(status).Inc()
	m.resolveDuration.Observe(seconds)
}
