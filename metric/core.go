package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not domain-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus     *prometheus.GaugeVec
	RequestsReceived  *prometheus.CounterVec
	RequestsCompleted *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	BytesStreamed     *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// Cache metrics
	CacheConnected prometheus.Gauge
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter

	// Budget metrics
	EndpointsSuppressed prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "seisgate",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		RequestsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "requests",
				Name:      "received_total",
				Help:      "Total number of federation requests received",
			},
			[]string{"service", "format"},
		),

		RequestsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "requests",
				Name:      "completed_total",
				Help:      "Total number of federation requests completed",
			},
			[]string{"service", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "seisgate",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Federation request processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		BytesStreamed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "requests",
				Name:      "bytes_streamed_total",
				Help:      "Total merged payload bytes streamed to clients",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "seisgate",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		// Cache metrics
		CacheConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seisgate",
				Subsystem: "cache",
				Name:      "connected",
				Help:      "Response cache connection status (0=disconnected, 1=connected)",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of response cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seisgate",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of response cache misses",
			},
		),

		// Budget metrics
		EndpointsSuppressed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seisgate",
				Subsystem: "budget",
				Name:      "endpoints_suppressed",
				Help:      "Number of endpoints currently suppressed by the retry budget",
			},
		),
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordRequestReceived increments the received request counter
func (c *Metrics) RecordRequestReceived(service, format string) {
	c.RequestsReceived.WithLabelValues(service, format).Inc()
}

// RecordRequestCompleted increments the completed request counter
func (c *Metrics) RecordRequestCompleted(service, status string) {
	c.RequestsCompleted.WithLabelValues(service, status).Inc()
}

// RecordRequestDuration records federation processing time
func (c *Metrics) RecordRequestDuration(service, operation string, duration time.Duration) {
	c.RequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordBytesStreamed adds to the streamed byte counter
func (c *Metrics) RecordBytesStreamed(service string, n int64) {
	c.BytesStreamed.WithLabelValues(service).Add(float64(n))
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordCacheStatus updates cache connection status
func (c *Metrics) RecordCacheStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.CacheConnected.Set(value)
}

// RecordCacheHit increments the cache hit counter
func (c *Metrics) RecordCacheHit() {
	c.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter
func (c *Metrics) RecordCacheMiss() {
	c.CacheMisses.Inc()
}

// RecordEndpointsSuppressed updates the suppressed endpoint gauge
func (c *Metrics) RecordEndpointsSuppressed(n int) {
	c.EndpointsSuppressed.Set(float64(n))
}
