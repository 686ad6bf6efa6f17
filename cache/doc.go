// Package cache provides the content-addressed response cache.
//
// # Overview
//
// Fully successful federated responses are stored under their query
// fingerprint (see query.Fingerprint) so an identical query within the TTL is
// served without touching the routing service or any backend. Values are
// opaque byte payloads; the cache is a pure key to bytes map with expiry and
// no versioning beyond TTL.
//
// # Implementations
//
// RedisCache is the production implementation, one Redis connection shared
// process-wide, keys namespaced by a configured prefix, entry expiry via
// SET with TTL. NoopCache is selected when caching is disabled and misses on
// every lookup, so callers never branch on a nil cache.
//
// # Failure Policy
//
// A missing key is errors.ErrCacheMiss; every other error is a backend
// failure. Callers treat backend failures as misses and log them, so a cache
// outage degrades throughput but never fails a request.
//
// # Known Limitation
//
// There is no request coalescing: concurrent identical queries that all miss
// will each recompute the response and each hit the backends. Single-flight
// deduplication is a possible future improvement, not a guarantee.
package cache
