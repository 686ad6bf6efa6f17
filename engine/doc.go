// Package engine federates one validated query across distributed archive
// endpoints and merges the partial payloads into a single ordered stream.
//
// # Overview
//
// The Processor is the orchestrator: it fingerprints the query against the
// response cache, resolves routes, fans one worker task out per
// (endpoint, epoch) pair under concurrency ceilings, and finalizes the
// per-task payload slots into one forward-only byte stream. Endpoint
// failures are absorbed as partial results; only route resolution and
// internal failures abort a request.
//
// # Architecture
//
//	┌───────────┐   Fingerprint   ┌─────────────┐
//	│ Processor │ ──────────────> │ cache.Cache │
//	│ Federate()│ <────────────── │   (Redis)   │
//	└─────┬─────┘    hit short-   └─────────────┘
//	      │          circuits
//	      │ Resolve
//	      ▼
//	┌───────────────┐    route table     ┌────────────────┐
//	│ RouteResolver │ ─────────────────> │ (endpoint,     │
//	│ (routing)     │                    │  epoch) tasks  │
//	└───────────────┘                    └───────┬────────┘
//	                                             │ spawn under
//	                                             │ limiter ceilings
//	      ┌──────────────────────────────────────┤
//	      ▼                    ▼                 ▼
//	┌──────────┐        ┌──────────┐       ┌──────────┐
//	│ worker   │        │ worker   │  ...  │ worker   │
//	│ POST     │        │ POST     │       │ POST     │
//	└────┬─────┘        └────┬─────┘       └────┬─────┘
//	     │ stream            │ stream           │ stream
//	     ▼                   ▼                  ▼
//	┌─────────────────────────────────────────────────┐
//	│ responseBuffer: ordered slots, spool-backed     │
//	│ finalize() → forward-only merged io.ReadCloser  │
//	└─────────────────────────────────────────────────┘
//
// # Task State Machine
//
// Every task resolves to exactly one Outcome:
//
//	PENDING → RUNNING → SUCCESS            payload (or zero bytes) in slot
//	                  → PERMANENT_FAILURE  absorbed, recorded, logged
//	                  → RETRY_SPLIT        epoch subdivided, children spawned
//
// A 204 or 404 from an endpoint is a zero-byte SUCCESS. A 413 subdivides the
// epoch and re-queues the halves into the parent's payload position; when the
// subdivision floor is reached the sub-epoch fails permanently instead of
// recursing. Any other non-2xx status, transport error, or stalled body read
// is a permanent failure that also counts against the endpoint's retry
// budget.
//
// # Payload Ordering
//
// Byte order is decided before any worker runs: slots are appended in route
// order and split children inherit the parent's position. Workers may finish
// in any order without affecting the merged stream.
//
// # Quick Start
//
//	processor, err := engine.NewProcessor(router, tracker, responseCache,
//	    engine.DefaultConfig(), logger, registry)
//	if err != nil {
//	    return err
//	}
//	defer processor.Close()
//
//	result, err := processor.Federate(ctx, engine.NewRequest(q))
//	if err != nil {
//	    return err
//	}
//	defer result.Close()
//	// stream result.Body to the client
//
// # Thread Safety
//
// A Processor is safe for concurrent use; the concurrency limiter and retry
// budget are shared across requests while each request owns its buffer and
// dispatcher.
package engine
