// Package budget implements per-endpoint admission control for federated
// sub-requests using a rolling error-ratio window (retry budget).
//
// # Overview
//
// Each backend endpoint gets a ring buffer of recent outcome flags (error or
// success) with a fixed capacity and an idle TTL. Before dispatching a
// sub-request, callers ask the tracker whether the endpoint is admissible;
// after a sub-request resolves, they record its outcome. An endpoint stops
// being admissible when it has produced enough samples and its error ratio
// has crossed the configured threshold.
//
// # Leaky-Bucket Semantics
//
// This is deliberately not an open/closed circuit breaker with half-open
// probing. Admissibility is recomputed from the live window on every call:
//
//   - Fewer than MinSamples outcomes: always admissible (no verdict yet)
//   - total >= MinSamples and errors/total >= Threshold: not admissible
//   - New successes evict old errors from the ring and dilute the ratio,
//     reopening the endpoint without any explicit state transition
//   - An entry idle past its TTL is dropped entirely and the endpoint
//     starts fresh
//
// Denied admission is not silent: callers must surface the denial as a
// permanent failure for that sub-request so the missing data is visible.
//
// # Quick Start
//
//	tracker, err := budget.New(ctx, budget.DefaultConfig(),
//	    budget.WithMetrics(registry),
//	    budget.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer tracker.Close()
//
//	if !tracker.Admissible(endpoint) {
//	    // Treat as permanent failure for this request.
//	}
//	// ... perform the sub-request ...
//	tracker.Record(endpoint, err == nil)
//
// # Defaults
//
// The standard configuration keeps the 10,000 most recent outcomes per
// endpoint, requires 100 samples before issuing a verdict, suppresses at a
// 1% error ratio, and expires entries idle for an hour. A background sweep
// removes expired entries so abandoned endpoints do not pin memory.
//
// # Thread Safety
//
// Tracker is safe for concurrent use and intended to be shared process-wide
// across all in-flight requests. Record and Admissible take a single mutex;
// the windows themselves are plain slices guarded by it.
package budget
