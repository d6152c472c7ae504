package analytics

import (
	"sort"
	"time"
)

// Rate holds the failure rate for one stats key.
type Rate struct {
	Key      string
	Attempts int64
	Failures int64

	// Percent is failures / attempts * 100.
	Percent float64
}

// TimeBucket counts failures inside one time-series bucket.
type TimeBucket struct {
	Start    time.Time
	Failures int
}

// Rates is the failure-rate report for a time window.
type Rates struct {
	Window     time.Duration
	Operations []Rate
	Components []Rate
	Categories []Rate

	// Series buckets failures in the window by hour, or by day for
	// windows longer than two days.
	Series []TimeBucket
}

// FailureRates computes failure percentages per operation, component,
// and category, plus a coarse failure time series for the window.
func (a *Analytics) FailureRates(window time.Duration) Rates {
	if window <= 0 {
		window = 24 * time.Hour
	}
	now := time.Now()
	cutoff := now.Add(-window)

	a.mu.Lock()
	defer a.mu.Unlock()

	out := Rates{
		Window:     window,
		Operations: ratesFrom(a.opStats),
		Components: ratesFrom(a.cmpStats),
	}

	// Category rates use the category failure counters against the
	// total attempts across operations.
	var totalAttempts int64
	for _, s := range a.opStats {
		totalAttempts += s.Attempts
	}
	for cat, failures := range a.byCat {
		out.Categories = append(out.Categories, rate(string(cat), totalAttempts, failures))
	}
	sort.Slice(out.Categories, func(i, j int) bool { return out.Categories[i].Key < out.Categories[j].Key })

	out.Series = a.seriesLocked(cutoff, now, window)
	return out
}

func ratesFrom(stats map[string]*OperationStats) []Rate {
	out := make([]Rate, 0, len(stats))
	for key, s := range stats {
		out = append(out, rate(key, s.Attempts, s.Failures))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func rate(key string, attempts, failures int64) Rate {
	r := Rate{Key: key, Attempts: attempts, Failures: failures}
	if attempts > 0 {
		r.Percent = float64(failures) / float64(attempts) * 100
	}
	return r
}

// seriesLocked buckets buffered failures in the window by hour or day.
func (a *Analytics) seriesLocked(cutoff, now time.Time, window time.Duration) []TimeBucket {
	bucket := time.Hour
	if window > 48*time.Hour {
		bucket = 24 * time.Hour
	}

	counts := make(map[time.Time]int)
	for _, r := range a.buffer {
		if r.Timestamp.Before(cutoff) || r.Timestamp.After(now) {
			continue
		}
		counts[r.Timestamp.Truncate(bucket)]++
	}

	out := make([]TimeBucket, 0, len(counts))
	for start, n := range counts {
		out = append(out, TimeBucket{Start: start, Failures: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
