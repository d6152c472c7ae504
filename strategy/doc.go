// Package strategy composes the resilience primitives into a single
// call contract for unreliable networked operations.
//
// A Strategy selects a circuit breaker by operation kind (network,
// storage, transaction — each with its own thresholds), wraps the call
// in a retry loop with backoff and jitter, optionally bounds each
// attempt with a deadline, tunes the retry count from network health,
// and reports every outcome to failure analytics.
//
//	s, err := strategy.New(strategy.Config{
//	    Settings:  config.Default(),
//	    Monitor:   monitor,
//	    Analytics: engine,
//	    Logger:    logger,
//	})
//
//	err = s.Execute(ctx, "blob-upload", uploadBlob, strategy.Options{
//	    Kind:      config.KindStorage,
//	    Component: "walrus",
//	})
//
// Terminal failures come back as a *OperationError carrying the
// failure category, attempt count, and a remediation hint; an open
// circuit comes back as a *resilience.CircuitOpenError with the time
// until the next probe.
package strategy
