package strategy

import (
	"time"

	"github.com/Angleito/walgit-sub001/analytics"
	"github.com/Angleito/walgit-sub001/health"
	"github.com/Angleito/walgit-sub001/resilience"
)

// NetworkHealth aggregates circuit, monitor, and failure-trend state
// for display by CLI or monitoring layers.
type NetworkHealth struct {
	Circuits map[string]resilience.Health
	Network  health.Snapshot
	Rates    analytics.Rates
	Patterns []*analytics.Pattern
}

// NetworkHealth returns a point-in-time snapshot of the resilience
// stack: every breaker's health, the network monitor state, and recent
// failure rates and patterns from analytics.
func (s *Strategy) NetworkHealth() NetworkHealth {
	out := NetworkHealth{
		Circuits: s.registry.Snapshot(),
	}
	if s.monitor != nil {
		out.Network = s.monitor.Snapshot()
	}
	if s.analytics != nil {
		out.Rates = s.analytics.FailureRates(24 * time.Hour)
		out.Patterns = s.analytics.Analyze(0).Patterns
	}
	return out
}
