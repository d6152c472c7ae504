package analytics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Angleito/walgit-sub001/resilience"
)

type categorizedErr struct{ category Category }

func (e *categorizedErr) Error() string             { return "declared" }
func (e *categorizedErr) FailureCategory() Category { return e.category }

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		fctx Context
		want Category
	}{
		{"explicit context wins", errors.New("connection refused"), Context{Category: CategoryStorage}, CategoryStorage},
		{"declared kind", &categorizedErr{CategoryTransaction}, Context{}, CategoryTransaction},
		{"wrapped declared kind", fmt.Errorf("submit: %w", &categorizedErr{CategoryStorage}), Context{}, CategoryStorage},
		{"validation error type", &resilience.ValidationError{Reason: "bad"}, Context{}, CategoryValidation},
		{"network keywords", errors.New("dial tcp: connection refused"), Context{}, CategoryNetwork},
		{"storage keywords", errors.New("walrus blob not available"), Context{}, CategoryStorage},
		{"transaction keywords", errors.New("insufficient gas for transaction"), Context{}, CategoryTransaction},
		{"auth keywords", errors.New("401 unauthorized"), Context{}, CategoryAuthentication},
		{"unmatched", errors.New("entropy depleted"), Context{}, CategoryUnknown},
		{"nil error", nil, Context{}, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyCategory(tt.err, tt.fctx); got != tt.want {
				t.Errorf("classifyCategory() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		name    string
		sev     Severity
		message string
		want    Severity
	}{
		{"valid passes through", SeverityInfo, "anything", SeverityInfo},
		{"invalid defaults to error", Severity("panic"), "anything", SeverityError},
		{"empty defaults to error", "", "anything", SeverityError},
		{"transient downgrades to warning", "", "request timeout", SeverityWarning},
		{"critical escalates", "", "critical: wallet corrupted", SeverityCritical},
		{"fatal escalates", SeverityInfo, "fatal storage loss", SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeSeverity(tt.sev, tt.message); got != tt.want {
				t.Errorf("normalizeSeverity(%q, %q) = %s, want %s", tt.sev, tt.message, got, tt.want)
			}
		})
	}
}
