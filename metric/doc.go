// Package metric provides Prometheus-based metrics collection and HTTP server
// for SeisGate monitoring and observability.
//
// The package offers a centralized metrics registry managing both core platform
// metrics (service status, request throughput, cache and budget health) and
// custom component-specific metrics. It includes an HTTP server exposing
// metrics in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// application concerns (component-specific metrics) while providing a unified
// metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry, tlsutil.ServerConfig{})
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("seisgate", 2)
//	coreMetrics.RecordRequestReceived("seisgate", "miniseed")
//	coreMetrics.RecordCacheHit()
//
// The metrics server will expose Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core platform metrics tracking:
//
//   - Service lifecycle: seisgate_service_status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)
//   - Request throughput: seisgate_requests_received_total, seisgate_requests_completed_total
//   - Processing performance: seisgate_processing_duration_seconds, seisgate_requests_bytes_streamed_total
//   - Cache health: seisgate_cache_connected, seisgate_cache_hits_total, seisgate_cache_misses_total
//   - Budget state: seisgate_budget_endpoints_suppressed
//   - Error tracking: seisgate_errors_total
//
// # Component-Specific Metrics
//
// Components register custom metrics through the registry:
//
//	splitCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "seisgate",
//	    Subsystem: "engine",
//	    Name:      "splits_total",
//	    Help:      "Total number of oversized-request splits",
//	})
//	err := registry.RegisterCounter("engine", "splits_total", splitCounter)
//
// Vector metrics with labels work the same way via RegisterCounterVec,
// RegisterGaugeVec and RegisterHistogramVec. Registration is keyed by
// (serviceName, metricName), so two components can never silently collide.
//
// # Naming Conventions
//
// All metrics use the "seisgate" namespace with a subsystem per concern
// (service, requests, processing, cache, budget, engine, errors). Counter
// names end in _total, durations are histograms in seconds.
//
// # Thread Safety
//
// The registry is safe for concurrent registration and the underlying
// Prometheus collectors are safe for concurrent observation.
package metric
