package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockComponent simulates a gateway component that registers its own metrics
type mockComponent struct {
	name    string
	metrics struct {
		tasksDispatched prometheus.Counter
		activeWorkers   prometheus.Gauge
	}
}

func newMockComponent(name string) *mockComponent {
	return &mockComponent{name: name}
}

// RegisterMetrics registers domain-specific metrics for the mock component
func (m *mockComponent) RegisterMetrics(registrar MetricsRegistrar) error {
	m.metrics.tasksDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seisgate",
		Subsystem: "mock_component",
		Name:      "tasks_dispatched_total",
		Help:      "Total number of backend tasks dispatched",
	})

	err := registrar.RegisterCounter(m.name, "tasks_dispatched_total", m.metrics.tasksDispatched)
	if err != nil {
		return err
	}

	m.metrics.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seisgate",
		Subsystem: "mock_component",
		Name:      "active_workers",
		Help:      "Current number of in-flight backend workers",
	})

	return registrar.RegisterGauge(m.name, "active_workers", m.metrics.activeWorkers)
}

// Dispatch simulates task dispatch activity and updates metrics
func (m *mockComponent) Dispatch(tasks int, active int) {
	m.metrics.tasksDispatched.Add(float64(tasks))
	m.metrics.activeWorkers.Set(float64(active))
}

func TestMetricsIntegration_ComponentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	component := newMockComponent("test-component")

	err := component.RegisterMetrics(registry)
	require.NoError(t, err)

	component.Dispatch(10, 5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	assert.True(t, foundMetrics["seisgate_mock_component_tasks_dispatched_total"],
		"Custom tasks_dispatched metric should be registered")
	assert.True(t, foundMetrics["seisgate_mock_component_active_workers"],
		"Custom active_workers metric should be registered")
}

func TestMetricsIntegration_NoDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	component1 := newMockComponent("duplicate-component")
	component2 := newMockComponent("duplicate-component")

	err := component1.RegisterMetrics(registry)
	require.NoError(t, err)

	// Same component name re-registering must fail
	err = component2.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMetricsIntegration_CoreAndComponentMetricsSeparate(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	component := newMockComponent("separation-test")
	err := component.RegisterMetrics(registry)
	require.NoError(t, err)

	coreMetrics.RecordServiceStatus("separation-test", 2)
	coreMetrics.RecordRequestReceived("separation-test", "miniseed")

	component.Dispatch(5, 3)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	assert.True(t, foundMetrics["seisgate_service_status"],
		"core service status metric should be present")
	assert.True(t, foundMetrics["seisgate_requests_received_total"],
		"core requests received metric should be present")

	assert.True(t, foundMetrics["seisgate_mock_component_tasks_dispatched_total"],
		"Component-specific dispatch metric should be present")
	assert.True(t, foundMetrics["seisgate_mock_component_active_workers"],
		"Component-specific worker gauge should be present")
}

func TestMetricsIntegration_MetricsUnregistration(t *testing.T) {
	registry := NewMetricsRegistry()

	component := newMockComponent("unregister-test")

	err := component.RegisterMetrics(registry)
	require.NoError(t, err)

	component.Dispatch(1, 1)

	success := registry.Unregister("unregister-test", "tasks_dispatched_total")
	assert.True(t, success, "Unregistration should succeed")

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundAfter := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundAfter[mf.GetName()] = true
	}

	assert.False(t, foundAfter["seisgate_mock_component_tasks_dispatched_total"],
		"Metric should be absent after unregistration")
	assert.True(t, foundAfter["seisgate_mock_component_active_workers"],
		"Other component metrics should remain")
}

func TestMetricsIntegration_PrometheusNameConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	// Different component names but identical Prometheus metric names
	component1 := newMockComponent("dispatcher-a")
	component2 := newMockComponent("dispatcher-b")

	err := component1.RegisterMetrics(registry)
	require.NoError(t, err)

	err = component2.RegisterMetrics(registry)
	assert.Error(t, err, "Second component should fail due to Prometheus metric name conflict")
	assert.Contains(t, err.Error(), "prometheus conflict")
}
