// Package analytics classifies, persists, and correlates failures so
// recurring faults surface as actionable diagnostics.
//
// The engine keeps a bounded in-memory buffer of failure records,
// rolling per-operation and per-component counters, and a map of
// tracked failure patterns. Records are durably stored one row per
// record in a local sqlite database; the aggregated stats document is
// flushed on a debounced schedule and on Close.
//
//	store, err := analytics.OpenStore(filepath.Join(dir, "failures.db"))
//	if err != nil { ... }
//	engine := analytics.New(analytics.Config{Store: store, Logger: logger})
//	defer engine.Close()
//
//	engine.LogFailure(ctx, err, analytics.Context{
//	    Operation: "blob-upload",
//	    Component: "walrus",
//	})
//	engine.RecordSuccess("blob-upload", "walrus")
//
//	report := engine.Analyze(0)
//	for _, p := range report.Patterns { ... }
//
// # Pattern detection
//
// Every record feeds five candidate signatures, from the full
// message+component+operation key down to the truncated message alone.
// A pattern becomes reportable at MinPatternCount occurrences (three
// by default); its confidence is the occurrence count over the minimum,
// capped at 0.95.
//
// # Circuit breaker integration
//
// FailurePredicate and StateListener compose with a circuit breaker's
// config at construction time: errors matching an established pattern
// count against the circuit, and every breaker transition is logged as
// an analytics event.
package analytics
