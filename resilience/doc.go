// Package resilience provides fault-isolation primitives for unreliable
// networked operations.
//
// The package implements the building blocks that the strategy and batch
// packages compose into full execution pipelines:
//
//   - Circuit Breaker: a per-name state machine that stops calling a
//     failing downstream operation until it is believed to have
//     recovered. Breakers are owned by a Registry so that tests and
//     tenants get isolated instances.
//
//   - Retry: exponential backoff with multiplicative jitter and a
//     pluggable retryability predicate. Validation and circuit-open
//     errors are never retried.
//
//   - Timeout: bounds each attempt, mapping a missed deadline to
//     ErrTimeout so the retry predicate treats it as transient.
//
// # Usage
//
//	reg := resilience.NewRegistry(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     30 * time.Second,
//	})
//	cb := reg.Get("walrus-upload")
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    RetryCount:   3,
//	    InitialDelay: 100 * time.Millisecond,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return retry.Execute(ctx, upload)
//	})
//
// When the circuit is open, Execute fails fast with a *CircuitOpenError
// carrying the time remaining until the next probe is allowed; the
// wrapped operation is never invoked.
package resilience
