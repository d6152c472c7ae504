package health

import "time"

// Latency thresholds for parameter scaling.
const (
	elevatedLatency = 200 * time.Millisecond
	highLatency     = 500 * time.Millisecond
)

// Params are execution parameters tuned by the monitor.
type Params struct {
	// BatchSize is the number of items grouped per batch.
	BatchSize int

	// Concurrency is the number of simultaneously in-flight groups.
	Concurrency int

	// RetryCount is the number of retries per operation.
	RetryCount int
}

// Recommend derives network-aware execution parameters from the given
// baseline. An unhealthy network halves the batch size, serializes
// execution, and adds retries; elevated latency scales the baseline
// down less aggressively.
func (m *Monitor) Recommend(base Params) Params {
	m.mu.Lock()
	status := m.status
	avg := m.averageLatencyLocked()
	m.mu.Unlock()

	out := base

	if status == StatusUnhealthy {
		out.BatchSize = max(1, base.BatchSize/2)
		out.Concurrency = 1
		out.RetryCount = base.RetryCount + 2
	} else if avg > highLatency {
		out.BatchSize = max(1, base.BatchSize/2)
		out.Concurrency = max(1, base.Concurrency/2)
		out.RetryCount = base.RetryCount + 2
	} else if avg > elevatedLatency {
		out.BatchSize = max(1, base.BatchSize*3/4)
		out.Concurrency = max(1, base.Concurrency-1)
		out.RetryCount = base.RetryCount + 1
	}

	return out
}

// Snapshot is a point-in-time view of the monitor.
type Snapshot struct {
	Status         Status
	AverageLatency time.Duration
	Samples        int
	FailureStreak  int
	LastProbe      time.Time
}

// Snapshot returns the monitor's current state for display.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Status:         m.status,
		AverageLatency: m.averageLatencyLocked(),
		Samples:        len(m.samples),
		FailureStreak:  m.failureStreak,
		LastProbe:      m.lastProbe,
	}
}
