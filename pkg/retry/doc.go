// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, designed to handle
// transient failures in network operations, resource initialization, and component startup.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (component startup)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Component startup with quick retries:
//
//	cfg := retry.Quick()
//	err := retry.Do(ctx, cfg, func() error {
//	    return store.Ping(ctx)
//	})
//
// Retry with result:
//
//	body, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() ([]byte, error) {
//	    return client.Fetch(ctx, url)
//	})
//
// Custom configuration:
//
//	cfg := retry.Config{
//	    MaxAttempts:  5,
//	    InitialDelay: 200 * time.Millisecond,
//	    MaxDelay:     10 * time.Second,
//	    Multiplier:   2.0,
//	    AddJitter:    true,
//	}
//	err := retry.Do(ctx, cfg, operation)
//
// # Non-Retryable Errors
//
// Wrap errors with NonRetryable to abort the loop immediately, for example on a
// response that indicates a malformed request rather than a transient fault:
//
//	if resp.StatusCode == http.StatusBadRequest {
//	    return retry.NonRetryable(fmt.Errorf("bad request: %s", body))
//	}
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers (use a separate admission package)
//   - No metrics collection (use instrumentation at call site)
//   - No complex error classification (caller decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and will immediately stop retrying
// when the context is cancelled, either during operation execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. Jitter uses math/rand/v2 top-level
// functions, which are goroutine-safe without additional locking.
package retry
