package analytics

import (
	"sort"
	"time"
)

// Correlation thresholds.
const (
	correlationWindow   = 5 * time.Minute
	correlationMinCount = 3
	correlationMinScore = 0.7
)

// Correlation is a temporal association between failures of two
// operations in the same component.
type Correlation struct {
	Component  string
	OperationA string
	OperationB string

	// Score is the fraction of failures in the smaller operation with
	// a temporally close failure in the other.
	Score float64

	// Matches is the number of temporally close failure pairs.
	Matches int

	// AverageGap is the mean time between matched failures.
	AverageGap time.Duration

	// Confidence grows with the number of matches, capped at 0.95.
	Confidence float64
}

// findCorrelationsLocked computes correlations over the in-memory
// buffer: for every operation pair within a component where both sides
// have enough failures, failures closer than the window count as
// matches.
func (a *Analytics) findCorrelationsLocked() []Correlation {
	// component -> operation -> sorted failure timestamps
	byComponent := make(map[string]map[string][]time.Time)
	for _, r := range a.buffer {
		if r.Component == "" || r.Operation == "" {
			continue
		}
		ops, ok := byComponent[r.Component]
		if !ok {
			ops = make(map[string][]time.Time)
			byComponent[r.Component] = ops
		}
		ops[r.Operation] = append(ops[r.Operation], r.Timestamp)
	}

	var out []Correlation
	for component, ops := range byComponent {
		names := make([]string, 0, len(ops))
		for name, times := range ops {
			if len(times) >= correlationMinCount {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				if c, ok := correlate(component, names[i], names[j], ops[names[i]], ops[names[j]]); ok {
					out = append(out, c)
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// correlate scores one operation pair. For every failure in a, the
// nearest failure in b is found; pairs inside the window are matches.
func correlate(component, opA, opB string, timesA, timesB []time.Time) (Correlation, bool) {
	sortedB := append([]time.Time(nil), timesB...)
	sort.Slice(sortedB, func(i, j int) bool { return sortedB[i].Before(sortedB[j]) })

	matches := 0
	var totalGap time.Duration
	for _, t := range timesA {
		gap := nearestGap(t, sortedB)
		if gap <= correlationWindow {
			matches++
			totalGap += gap
		}
	}

	denom := len(timesA)
	if len(timesB) < denom {
		denom = len(timesB)
	}
	score := float64(matches) / float64(denom)
	if score <= correlationMinScore {
		return Correlation{}, false
	}

	c := Correlation{
		Component:  component,
		OperationA: opA,
		OperationB: opB,
		Score:      score,
		Matches:    matches,
		AverageGap: totalGap / time.Duration(matches),
		Confidence: confidence(matches, 5),
	}
	return c, true
}

// nearestGap returns the absolute gap between t and the closest time
// in the sorted slice.
func nearestGap(t time.Time, sorted []time.Time) time.Duration {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(t) })

	best := time.Duration(-1)
	if i < len(sorted) {
		best = sorted[i].Sub(t)
	}
	if i > 0 {
		if gap := t.Sub(sorted[i-1]); best < 0 || gap < best {
			best = gap
		}
	}
	return best
}
