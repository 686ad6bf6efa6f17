// Package errors provides standardized error handling patterns for SeisGate components.
//
// # Overview
//
// The errors package implements a three-class error classification system designed for
// a federating gateway in front of distributed data archives: Transient (temporary,
// retryable), Invalid (bad input, non-retryable), and Fatal (unrecoverable, stop
// processing).
//
// This classification enables intelligent error handling strategies throughout SeisGate,
// allowing components to make informed decisions about retries, graceful degradation,
// and failure recovery without hardcoded error string matching.
//
// # Error Classification
//
// Errors are automatically classified based on their type or content:
//
//   - Transient: Network timeouts, connection issues, temporary unavailability (retry recommended)
//   - Invalid: Malformed input, validation failures, bad configuration (do not retry)
//   - Fatal: Resource exhaustion, data corruption, unrecoverable states (stop processing)
//
// The classification system integrates seamlessly with Go's standard error handling
// patterns, supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	// Return standard error for known conditions
//	if len(query.Epochs) == 0 {
//	    return errors.ErrNoSelectors
//	}
//
// Wrap errors with context for debugging:
//
//	// Wrap third-party errors with component context
//	if err := client.Resolve(ctx, query); err != nil {
//	    return errors.Wrap(err, "Processor", "Federate", "route resolution")
//	}
//
// Check classification for degradation logic:
//
//	if err := cache.Get(ctx, key); err != nil {
//	    if errors.IsTransient(err) {
//	        // Treat as cache miss, continue without cached response
//	    } else if errors.IsFatal(err) {
//	        // Stop processing, escalate to operator
//	        log.Fatalf("Unrecoverable error: %v", err)
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing, debugging, and operational monitoring
// across the gateway. The Wrap family of functions automatically applies this pattern
// while preserving error classification through the chain.
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")  // Preserves original class
//
// # Standard Error Variables
//
// The package provides pre-defined error variables for common conditions, organized
// by category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Connection issues: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout
//   - Query validation: ErrInvalidData, ErrParsingFailed, ErrNoSelectors, ErrInvalidTimeRange
//   - Routing: ErrNoRoutes, ErrRoutingFailed, ErrMalformedRouting
//   - Federation: ErrEndpointSuppressed, ErrSplitExhausted, ErrStreamDeadline
//   - Caching: ErrCacheUnavailable, ErrCacheMiss
//
// Use these variables instead of creating custom error messages for consistency:
//
//	// Good - uses standard variable
//	if table.Empty() {
//	    return errors.ErrNoRoutes
//	}
//
//	// Avoid - custom error message
//	if table.Empty() {
//	    return errors.New("no routes")
//	}
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	// Check error classification
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	// Check for specific standard errors
//	if errors.Is(err, errors.ErrEndpointSuppressed) {
//	    // Skip endpoint without recording a budget sample
//	}
//
//	// Classification is preserved through error chains
//	wrapped := errors.Wrap(errors.ErrConnectionTimeout, "Worker", "Run", "backend dial")
//	if errors.IsTransient(wrapped) {  // true - classification preserved
//	    // Degradation logic
//	}
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are automatically
// classified as Transient, enabling consistent handling of context-based timeouts:
//
//	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
//	defer cancel()
//
//	if err := worker.Run(ctx); err != nil {
//	    if errors.IsTransient(err) {
//	        // Handles both network timeouts AND context timeouts
//	        log.Printf("Transient error: %v", err)
//	    }
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable constants safe for concurrent access. The ClassifiedError type
// is safe to share across goroutines after creation.
//
// # Architecture Integration
//
// The errors package integrates with other SeisGate components:
//
//   - engine: Workers map error classes to task outcomes and budget samples
//   - cache: Cache failures classify as transient and degrade to misses
//   - routing: Routing client wraps transport errors for retry decisions
//   - gateway: HTTP layer maps error classes to response status codes
package errors
