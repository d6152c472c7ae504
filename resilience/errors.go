package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	// The concrete error is always a *CircuitOpenError; the sentinel
	// exists for errors.Is checks.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// CircuitOpenError is returned by a breaker that is fast-failing.
// It carries the time remaining until the breaker will allow a probe.
type CircuitOpenError struct {
	// Breaker is the name of the circuit breaker that rejected the call.
	Breaker string

	// RetryAfter is the time remaining until the breaker transitions
	// to half-open and allows a trial call.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q is open, retry after %s", e.Breaker, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrCircuitOpen, so callers can use
// errors.Is(err, ErrCircuitOpen) without asserting the concrete type.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// ValidationError indicates the request itself is invalid. Validation
// errors are never retried and never counted against a circuit breaker
// by the default strategy wiring.
type ValidationError struct {
	// Field is the offending input, when known.
	Field string

	// Reason describes why validation failed.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("resilience: validation failed for %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("resilience: validation failed: %s", e.Reason)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
