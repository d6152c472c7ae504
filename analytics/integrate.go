package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/Angleito/walgit-sub001/resilience"
)

// FailurePredicate wraps a breaker failure predicate so that errors
// matching an established failure pattern also count against the
// circuit, even when the base predicate would ignore them. The
// breaker's own counter and the pattern match stay independent checks.
func (a *Analytics) FailurePredicate(base resilience.FailurePredicate) resilience.FailurePredicate {
	if base == nil {
		base = func(err error) bool { return err != nil }
	}
	return func(err error) bool {
		if base(err) {
			return true
		}
		return err != nil && a.matchesPattern(err.Error())
	}
}

// matchesPattern reports whether the message overlaps the signature of
// a pattern at or above the reporting threshold.
func (a *Analytics) matchesPattern(message string) bool {
	msg := strings.ToLower(message)
	if len(msg) > signatureMessageLen {
		msg = msg[:signatureMessageLen]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.patterns {
		if len(p.Occurrences) < a.config.MinPatternCount {
			continue
		}
		sig, ok := strings.CutPrefix(p.Signature, "msg:")
		if !ok {
			continue
		}
		if i := strings.IndexByte(sig, '|'); i >= 0 {
			sig = sig[:i]
		}
		if sig != "" && (strings.Contains(msg, sig) || strings.Contains(sig, msg)) {
			return true
		}
	}
	return false
}

// StateListener returns a listener that logs every breaker transition
// as an analytics event: an error-severity event when a circuit trips,
// an info-severity event when it recovers.
func (a *Analytics) StateListener(operation, component string) resilience.StateChangeListener {
	return func(name string, from, to resilience.State) {
		severity := SeverityInfo
		if to == resilience.StateOpen {
			severity = SeverityError
		}

		a.LogFailure(context.Background(),
			fmt.Errorf("circuit %s transitioned from %s to %s", name, from, to),
			Context{
				Operation: operation,
				Component: component,
				Category:  CategoryNetwork,
				Severity:  severity,
				Metadata: map[string]string{
					"circuit":    name,
					"from_state": from.String(),
					"to_state":   to.String(),
				},
			})
	}
}
