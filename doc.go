// Package seisgate is a federating HTTP gateway for geographically
// distributed seismological data archives.
//
// # Overview
//
// A client submits one logical query: a set of station/channel selectors,
// each bound to a time range. SeisGate discovers which independent backend
// archives hold matching data, fans sub-requests out to all of them, and
// reassembles the partial responses into a single ordered byte stream:
//
//	           client query (GET params or POST selector lines)
//	                             │
//	                       ┌─────▼─────┐
//	                       │  gateway  │  parse, validate, size limits,
//	                       └─────┬─────┘  error bodies, access log
//	                             │
//	                       ┌─────▼─────┐
//	                       │  engine   │  cache lookup, route resolution,
//	                       │(Processor)│  dispatch, merge, cache store
//	                       └─────┬─────┘
//	          ┌──────────────────┼──────────────────┐
//	          ▼                  ▼                  ▼
//	     ┌─────────┐        ┌─────────┐        ┌─────────┐
//	     │ archive │        │ archive │        │ archive │   one worker per
//	     │    A    │        │    B    │        │    C    │   (endpoint, epoch)
//	     └─────────┘        └─────────┘        └─────────┘
//
// The hard part lives in the engine: adaptive work splitting when a backend
// rejects a request as too large (HTTP 413), per-endpoint admission control
// driven by a rolling error-ratio window (package budget), ordered merging of
// concurrently produced streams with bounded memory (package pkg/spool spills
// to disk past a threshold), and TTL-based caching of merged results in Redis
// (package cache), all behind one synchronous Federate call.
//
// # Packages
//
//   - epoch: stream-epoch value objects, the selector line codec, and the
//     recursive time-interval splitting algorithm
//   - query: validated client queries, normalization and cache fingerprints
//   - routing: the routing-service client resolving selectors to endpoints
//   - budget: rolling-window error-ratio admission control per endpoint
//   - cache: Redis-backed response cache (get/set-with-expiry/exists/delete)
//   - engine: worker state machine, response buffer, dispatcher, Processor
//   - gateway: HTTP ingress, FDSN-style error bodies, version and health
//     endpoints
//   - config, errors, metric, health, pkg/retry, pkg/spool, pkg/tlsutil:
//     shared infrastructure
//
// # Degradation model
//
// Endpoint-level failures never fail a federated request: unhealthy or
// erroring archives contribute nothing and the merged stream carries whatever
// the remaining archives returned. Only routing resolution failures and
// internal errors surface to the client as upstream errors.
package seisgate
