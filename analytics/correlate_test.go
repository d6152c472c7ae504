package analytics

import (
	"testing"
	"time"
)

// seedFailures plants records with controlled timestamps directly in
// the buffer.
func seedFailures(a *Analytics, component, operation string, times ...time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ts := range times {
		a.buffer = append(a.buffer, &FailureRecord{
			ID:        operation + ts.String(),
			Timestamp: ts,
			Operation: operation,
			Component: component,
			ErrorType: CategoryNetwork,
			Message:   "seeded",
		})
	}
}

func TestCorrelations_CloseFailuresCorrelate(t *testing.T) {
	a := newTestAnalytics(t)
	base := time.Now()

	// Each op1 failure has an op2 failure within 4 minutes.
	seedFailures(a, "walrus", "blob-upload",
		base, base.Add(10*time.Minute), base.Add(20*time.Minute))
	seedFailures(a, "walrus", "blob-verify",
		base.Add(2*time.Minute), base.Add(13*time.Minute), base.Add(23*time.Minute))

	a.mu.Lock()
	correlations := a.findCorrelationsLocked()
	a.mu.Unlock()

	if len(correlations) != 1 {
		t.Fatalf("correlations = %d, want 1", len(correlations))
	}
	c := correlations[0]
	if c.Component != "walrus" {
		t.Errorf("Component = %s, want walrus", c.Component)
	}
	if c.Score <= 0.7 {
		t.Errorf("Score = %v, want > 0.7", c.Score)
	}
	if c.Matches != 3 {
		t.Errorf("Matches = %d, want 3", c.Matches)
	}
	if c.AverageGap <= 0 || c.AverageGap > 4*time.Minute {
		t.Errorf("AverageGap = %v, want in (0, 4m]", c.AverageGap)
	}
}

func TestCorrelations_DistantFailuresDoNot(t *testing.T) {
	a := newTestAnalytics(t)
	base := time.Now()

	seedFailures(a, "sui", "tx-submit",
		base, base.Add(time.Hour), base.Add(2*time.Hour))
	seedFailures(a, "sui", "tx-verify",
		base.Add(20*time.Minute), base.Add(90*time.Minute), base.Add(150*time.Minute))

	a.mu.Lock()
	correlations := a.findCorrelationsLocked()
	a.mu.Unlock()

	if len(correlations) != 0 {
		t.Errorf("correlations = %d, want 0 (gaps exceed window)", len(correlations))
	}
}

func TestCorrelations_RequireMinimumFailures(t *testing.T) {
	a := newTestAnalytics(t)
	base := time.Now()

	// Only 2 failures each: below the per-operation floor.
	seedFailures(a, "walrus", "op-a", base, base.Add(time.Minute))
	seedFailures(a, "walrus", "op-b", base.Add(30*time.Second), base.Add(90*time.Second))

	a.mu.Lock()
	correlations := a.findCorrelationsLocked()
	a.mu.Unlock()

	if len(correlations) != 0 {
		t.Errorf("correlations = %d, want 0 (too few failures)", len(correlations))
	}
}

func TestCorrelations_DifferentComponentsNotPaired(t *testing.T) {
	a := newTestAnalytics(t)
	base := time.Now()

	seedFailures(a, "walrus", "op-a", base, base.Add(time.Minute), base.Add(2*time.Minute))
	seedFailures(a, "sui", "op-b", base, base.Add(time.Minute), base.Add(2*time.Minute))

	a.mu.Lock()
	correlations := a.findCorrelationsLocked()
	a.mu.Unlock()

	if len(correlations) != 0 {
		t.Errorf("correlations = %d, want 0 (different components)", len(correlations))
	}
}

func TestNearestGap(t *testing.T) {
	base := time.Unix(1000, 0)
	sorted := []time.Time{base, base.Add(10 * time.Second), base.Add(30 * time.Second)}

	tests := []struct {
		t    time.Time
		want time.Duration
	}{
		{base.Add(-5 * time.Second), 5 * time.Second},
		{base.Add(4 * time.Second), 4 * time.Second},
		{base.Add(9 * time.Second), time.Second},
		{base.Add(40 * time.Second), 10 * time.Second},
		{base.Add(10 * time.Second), 0},
	}
	for _, tt := range tests {
		if got := nearestGap(tt.t, sorted); got != tt.want {
			t.Errorf("nearestGap(%v) = %v, want %v", tt.t.Sub(base), got, tt.want)
		}
	}
}
