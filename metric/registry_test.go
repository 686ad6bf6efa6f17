package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-service", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	// Verify the counter is registered in the underlying Prometheus registry
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "Counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("test-service", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_gauge" {
			found = true
			break
		}
	}
	assert.True(t, found, "Gauge should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("test-service", "test_histogram", histogram)
	require.NoError(t, err)

	histogram.Observe(1.5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_histogram" {
			found = true
			break
		}
	}
	assert.True(t, found, "Histogram should be registered in Prometheus registry")
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	// First registration should succeed
	err := registry.RegisterCounter("service1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Second registration with same name should fail
	err = registry.RegisterCounter("service2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")

	// Same (service, metric) key is rejected by local tracking
	err = registry.RegisterCounter("service1", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("test-service", "unregister_counter", counter)
	require.NoError(t, err)

	success := registry.Unregister("test-service", "unregister_counter")
	assert.True(t, success)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range metricFamilies {
		assert.NotEqual(t, "unregister_counter", mf.GetName())
	}

	// Unknown key reports false
	assert.False(t, registry.Unregister("test-service", "never_registered"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-service",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"All concurrent counters should be registered")
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	registry := NewMetricsRegistry()

	// Verify registry implements MetricsRegistrar interface
	var registrar MetricsRegistrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("interface-service", "interface_counter", counter)
	require.NoError(t, err)
}

func TestMetricsRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewMetricsRegistry()

	// Vector metrics don't appear in Gather() until they have at least one
	// value set, so record through the core helpers first.
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordServiceStatus("seisgate", 2)
	coreMetrics.RecordRequestReceived("seisgate", "miniseed")
	coreMetrics.RecordRequestCompleted("seisgate", "success")
	coreMetrics.RecordRequestDuration("seisgate", "federate", 100*time.Millisecond)
	coreMetrics.RecordBytesStreamed("seisgate", 4096)
	coreMetrics.RecordError("seisgate", "routing")
	coreMetrics.RecordHealthStatus("seisgate", true)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	expectedCoreMetrics := []string{
		"seisgate_service_status",
		"seisgate_requests_received_total",
		"seisgate_requests_completed_total",
		"seisgate_processing_duration_seconds",
		"seisgate_requests_bytes_streamed_total",
		"seisgate_errors_total",
		"seisgate_health_status",
		"seisgate_cache_connected",
		"seisgate_cache_hits_total",
		"seisgate_cache_misses_total",
		"seisgate_budget_endpoints_suppressed",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	for _, expectedMetric := range expectedCoreMetrics {
		assert.True(t, foundMetrics[expectedMetric],
			"core metric %s should be initialized", expectedMetric)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordServiceStatus("seisgate", 2)
	coreMetrics.RecordRequestReceived("seisgate", "text")
	coreMetrics.RecordRequestCompleted("seisgate", "partial")
	coreMetrics.RecordRequestDuration("seisgate", "resolve", 100*time.Millisecond)
	coreMetrics.RecordBytesStreamed("seisgate", 1024)
	coreMetrics.RecordError("seisgate", "backend")
	coreMetrics.RecordHealthStatus("seisgate", true)
	coreMetrics.RecordCacheStatus(true)
	coreMetrics.RecordCacheHit()
	coreMetrics.RecordCacheMiss()
	coreMetrics.RecordEndpointsSuppressed(2)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	assert.Greater(t, len(metricFamilies), 0, "Should have recorded metrics")
}
