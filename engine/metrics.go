package engine

import (
	"github.com/c360/seisgate/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// engineMetrics holds Prometheus metrics for federated request processing.
type engineMetrics struct {
	federations      *prometheus.CounterVec // By status (success/partial/nodata/error/cache_hit)
	federateDuration prometheus.Histogram
	tasks            *prometheus.CounterVec // By resolved state
	taskBytes        prometheus.Counter
	splits           prometheus.Counter
	activeWorkers    prometheus.Gauge
}

// newEngineMetrics creates and registers engine metrics with the provided
// registry.
func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &engineMetrics{
		federations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "federations_total",
			Help:      "Total number of federated requests by final status",
		}, []string{"status"}), // status: success, partial, nodata, error, cache_hit

		federateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "federate_duration_seconds",
			Help:      "End-to-end federated request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
		}),

		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "tasks_total",
			Help:      "Total number of resolved sub-request tasks by state",
		}, []string{"state"}),

		taskBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "task_bytes_total",
			Help:      "Total payload bytes fetched from backend endpoints",
		}),

		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "splits_total",
			Help:      "Total number of epoch subdivisions after too-large rejections",
		}),

		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seisgate",
			Subsystem: "engine",
			Name:      "active_workers",
			Help:      "Number of sub-request workers currently running",
		}),
	}

	if err := registry.RegisterCounterVec("engine", "federations", m.federations); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("engine", "federate_duration", m.federateDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "tasks", m.tasks); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("engine", "task_bytes", m.taskBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("engine", "splits", m.splits); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("engine", "active_workers", m.activeWorkers); err != nil {
		return nil, err
	}

	return m, nil
}

// recordFederation records one completed federated request.
func (m *engineMetrics) recordFederation(status string, seconds float64) {
	if m == nil {
		return
	}
	m.federations.WithLabelValues(status).Inc()
	m.federateDuration.Observe(seconds)
}

// recordTask records one resolved sub-request task.
func (m *engineMetrics) recordTask(state TaskState, bytes int64) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(state.String()).Inc()
	if bytes > 0 {
		m.taskBytes.Add(float64(bytes))
	}
	if state == StateRetrySplit {
		m.splits.Inc()
	}
}

// workerStarted marks a worker entering its sub-request.
func (m *engineMetrics) workerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// workerDone marks a worker leaving its sub-request.
func (m *engineMetrics) workerDone() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}
