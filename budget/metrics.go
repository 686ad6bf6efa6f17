package budget

import (
	"github.com/c360/seisgate/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// budgetMetrics holds Prometheus metrics for retry-budget decisions.
type budgetMetrics struct {
	records *prometheus.CounterVec // By endpoint and outcome (success/error)
	denials *prometheus.CounterVec // By endpoint
	tracked prometheus.Gauge       // Endpoints with a live window

	core *metric.Metrics // Shared gateway-wide gauges
}

// newBudgetMetrics creates and registers budget metrics with the provided
// registry.
func newBudgetMetrics(registry *metric.MetricsRegistry) (*budgetMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &budgetMetrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "budget",
			Name:      "records_total",
			Help:      "Total number of outcomes recorded against endpoint budgets",
		}, []string{"endpoint", "outcome"}), // outcome: success, error

		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "budget",
			Name:      "denials_total",
			Help:      "Total number of sub-requests denied by the retry budget",
		}, []string{"endpoint"}),

		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seisgate",
			Subsystem: "budget",
			Name:      "endpoints_tracked",
			Help:      "Number of endpoints with a live budget window",
		}),

		core: registry.CoreMetrics(),
	}

	if err := registry.RegisterCounterVec("budget", "records", m.records); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("budget", "denials", m.denials); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("budget", "endpoints_tracked", m.tracked); err != nil {
		return nil, err
	}

	return m, nil
}

// recordOutcome records one success or error outcome for an endpoint.
func (m *budgetMetrics) recordOutcome(endpoint string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.records.WithLabelValues(endpoint, outcome).Inc()
}

// recordDenial records an admission denial for an endpoint.
func (m *budgetMetrics) recordDenial(endpoint string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(endpoint).Inc()
}

// setTracked updates the live endpoint count.
func (m *budgetMetrics) setTracked(n int) {
	if m == nil {
		return
	}
	m.tracked.Set(float64(n))
}

// setSuppressed updates the gateway-wide suppressed endpoint gauge.
func (m *budgetMetrics) setSuppressed(n int) {
	if m == nil || m.core == nil {
		return
	}
	m.core.RecordEndpointsSuppressed(n)
}
