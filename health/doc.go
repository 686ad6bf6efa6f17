// Package health provides health monitoring functionality for SeisGate
// components and the gateway as a whole.
//
// # Overview
//
// The package tracks per-component health (cache, routing client, backend
// dispatcher, retry budget) in a thread-safe Monitor and aggregates them into
// a single system status served by the gateway's health endpoint.
//
// # Status Model
//
// A Status is one of three states:
//
//   - healthy: component operating normally
//   - degraded: component operating with reduced capability (e.g. cache
//     unreachable, responses still served without caching)
//   - unhealthy: component not operating (e.g. routing service unreachable)
//
// Degraded is the gateway's natural resting state under partial failure:
// federation keeps serving data while individual collaborators misbehave.
//
// # Basic Usage
//
//	monitor := health.NewMonitor()
//
//	monitor.UpdateHealthy("routing", "resolver reachable")
//	monitor.UpdateDegraded("cache", "redis unreachable, serving uncached")
//	monitor.UpdateFromError("budget", err)
//
//	system := monitor.AggregateHealth("seisgate")
//	// system.Status == "degraded"
//
// Aggregation rules: any unhealthy sub-status makes the system unhealthy;
// otherwise any degraded sub-status makes it degraded; otherwise healthy.
//
// # Message Sanitization
//
// Status messages are exposed over HTTP. FromError and UpdateFromError
// sanitize error text before it becomes a status message, replacing URLs,
// file paths, IP addresses, ports and credential-shaped fragments with
// placeholder tokens.
package health
