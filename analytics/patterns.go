package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// signatureMessageLen truncates messages inside pattern signatures so
// variable suffixes (ids, addresses) do not defeat grouping.
const signatureMessageLen = 50

// Pattern is a recurring failure class identified by a shared
// signature.
type Pattern struct {
	Signature   string
	Occurrences []*FailureRecord
	FirstSeen   time.Time
	LastSeen    time.Time
	Confidence  float64
}

// Category returns the dominant error category of the pattern's
// occurrences.
func (p *Pattern) Category() Category {
	counts := make(map[Category]int)
	for _, r := range p.Occurrences {
		counts[r.ErrorType]++
	}
	var best Category = CategoryUnknown
	bestN := 0
	for c, n := range counts {
		if n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// signatures computes the candidate signatures for one record, from
// most to least specific.
func signatures(r *FailureRecord) []string {
	msg := strings.ToLower(r.Message)
	if len(msg) > signatureMessageLen {
		msg = msg[:signatureMessageLen]
	}

	sigs := make([]string, 0, 5)
	sigs = append(sigs, "msg:"+msg+"|component:"+r.Component+"|operation:"+r.Operation)
	sigs = append(sigs, "type:"+string(r.ErrorType)+"|component:"+r.Component)
	sigs = append(sigs, "type:"+string(r.ErrorType)+"|operation:"+r.Operation)
	sigs = append(sigs, "component:"+r.Component+"|operation:"+r.Operation)
	sigs = append(sigs, "msg:"+msg)
	return sigs
}

// detectPatternsLocked feeds a new record into every candidate
// signature's tracked pattern, creating candidates on first sight.
func (a *Analytics) detectPatternsLocked(r *FailureRecord) {
	for _, sig := range signatures(r) {
		p, ok := a.patterns[sig]
		if !ok {
			p = &Pattern{Signature: sig, FirstSeen: r.Timestamp}
			a.patterns[sig] = p
		}
		p.Occurrences = append(p.Occurrences, r)
		p.LastSeen = r.Timestamp
		p.Confidence = confidence(len(p.Occurrences), a.config.MinPatternCount)
	}
}

// confidence maps an occurrence count to [0, 0.95].
func confidence(occurrences, minCount int) float64 {
	c := float64(occurrences) / float64(minCount)
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// prunePatternsLocked drops occurrences that aged out of the retention
// window and deletes patterns left below the minimum count with no
// recent activity.
func (a *Analytics) prunePatternsLocked(now time.Time) {
	cutoff := now.Add(-a.config.Retention)
	for sig, p := range a.patterns {
		kept := p.Occurrences[:0]
		for _, r := range p.Occurrences {
			if r.Timestamp.After(cutoff) {
				kept = append(kept, r)
			}
		}
		p.Occurrences = kept
		if len(kept) == 0 {
			delete(a.patterns, sig)
			continue
		}
		p.FirstSeen = kept[0].Timestamp
		p.LastSeen = kept[len(kept)-1].Timestamp
		p.Confidence = confidence(len(kept), a.config.MinPatternCount)
	}
}

// DefaultMinConfidence is the reporting floor used by Analyze when the
// caller passes zero.
const DefaultMinConfidence = 0.7

// Report is the output of a pattern analysis pass.
type Report struct {
	Patterns        []*Pattern
	Correlations    []Correlation
	Summary         string
	Recommendations []string
}

// Analyze returns the tracked patterns at or above the confidence
// floor with at least the minimum occurrence count, sorted by
// occurrence count descending, together with cross-operation
// correlations and derived recommendations.
func (a *Analytics) Analyze(minConfidence float64) *Report {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.prunePatternsLocked(time.Now())

	patterns := make([]*Pattern, 0, len(a.patterns))
	for _, p := range a.patterns {
		if len(p.Occurrences) >= a.config.MinPatternCount && p.Confidence >= minConfidence {
			patterns = append(patterns, p.clone())
		}
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i].Occurrences) != len(patterns[j].Occurrences) {
			return len(patterns[i].Occurrences) > len(patterns[j].Occurrences)
		}
		return patterns[i].Signature < patterns[j].Signature
	})

	correlations := a.findCorrelationsLocked()

	return &Report{
		Patterns:        patterns,
		Correlations:    correlations,
		Summary:         a.summaryLocked(patterns, correlations),
		Recommendations: recommendations(patterns),
	}
}

func (p *Pattern) clone() *Pattern {
	out := *p
	out.Occurrences = append([]*FailureRecord(nil), p.Occurrences...)
	return &out
}

func (a *Analytics) summaryLocked(patterns []*Pattern, correlations []Correlation) string {
	if len(patterns) == 0 {
		return fmt.Sprintf("%d recent failures, no recurring patterns detected", len(a.buffer))
	}
	top := patterns[0]
	return fmt.Sprintf("%d recent failures, %d recurring patterns (%d correlations); top: %s (%d occurrences, %.0f%% confidence)",
		len(a.buffer), len(patterns), len(correlations),
		top.Signature, len(top.Occurrences), top.Confidence*100)
}

// recommendations derives remediation hints from the top pattern's
// dominant category.
func recommendations(patterns []*Pattern) []string {
	if len(patterns) == 0 {
		return nil
	}

	switch patterns[0].Category() {
	case CategoryNetwork:
		return []string{
			"recurring network failures: verify endpoint reachability and keep circuit protection enabled",
			"consider lowering concurrency until latency stabilizes",
		}
	case CategoryTransaction:
		return []string{
			"recurring transaction failures: review gas budget and transaction parameters",
			"check ledger node status before resubmitting",
		}
	case CategoryStorage:
		return []string{
			"recurring storage failures: verify blob availability and add storage redundancy",
			"re-upload affected blobs once the provider recovers",
		}
	case CategoryAuthentication:
		return []string{
			"recurring authentication failures: verify credentials and key material",
		}
	default:
		return []string{
			"recurring failures without a clear category: inspect recent records for a common cause",
		}
	}
}
