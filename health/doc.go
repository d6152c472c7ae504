// Package health monitors network health and advises adaptive
// execution parameters.
//
// A Monitor runs active probes through a Prober, keeps a small rolling
// window of round-trip latencies, and tracks a coarse status. Probes
// are rate limited (one per ProbeInterval) and concurrent callers share
// a single in-flight probe, so Healthy is cheap to call on every
// operation.
//
//	mon := health.NewMonitor(health.MonitorConfig{
//	    Prober: &health.DialProber{Address: "fullnode.mainnet.sui.io:443"},
//	})
//
//	if !mon.Healthy(ctx) {
//	    // degrade gracefully
//	}
//
//	params := mon.Recommend(health.Params{BatchSize: 10, Concurrency: 4, RetryCount: 3})
//
// The status becomes unhealthy after three consecutive probe failures
// and recovers on any success.
package health
