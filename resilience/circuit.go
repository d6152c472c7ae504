package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// FailurePredicate decides whether an error counts against the breaker.
type FailurePredicate func(err error) bool

// StateChangeListener is notified after every state transition.
type StateChangeListener func(name string, from, to State)

// stateHistorySize bounds the transition ring buffer per breaker.
const stateHistorySize = 100

// Transition records a single state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of counted failures in closed state
	// before the circuit opens.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before allowing
	// a half-open probe.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenSuccessThreshold is the number of consecutive successes
	// in half-open state required to close the circuit.
	// Default: 1
	HalfOpenSuccessThreshold int

	// OnStateChange is called after every state transition.
	OnStateChange StateChangeListener

	// IsFailure determines if an error should count as a failure.
	// Errors it rejects still propagate to the caller uncounted.
	// Default: all non-nil errors are failures.
	IsFailure FailurePredicate
}

// CircuitBreaker implements the circuit breaker pattern for one named
// downstream operation.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	lastChange  time.Time
	history     []Transition
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenSuccessThreshold <= 0 {
		config.HalfOpenSuccessThreshold = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		name:       name,
		config:     config,
		state:      StateClosed,
		lastChange: time.Now(),
	}
}

// Name returns the breaker's identity.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// ExecuteOptions control a single Execute call.
type ExecuteOptions struct {
	// BypassCircuit skips the open-state check. The outcome is still
	// recorded against the breaker.
	BypassCircuit bool
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	return cb.ExecuteWith(ctx, op, ExecuteOptions{})
}

// ExecuteWith runs the operation through the circuit breaker with
// per-call options.
func (cb *CircuitBreaker) ExecuteWith(ctx context.Context, op func(context.Context) error, opts ExecuteOptions) error {
	if err := cb.beforeRequest(opts.BypassCircuit); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state, applying the open→half-open
// timeout transition if it is due.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset forces the breaker to closed state and zeroes its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		cb.transitionLocked(StateClosed)
	} else {
		cb.failures = 0
		cb.successes = 0
	}
}

// ForceState moves the breaker to the given state regardless of its
// counters. Intended for operational overrides.
func (cb *CircuitBreaker) ForceState(state State) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != state {
		if state == StateOpen {
			cb.lastFailure = time.Now()
		}
		cb.transitionLocked(state)
	}
}

func (cb *CircuitBreaker) beforeRequest(bypass bool) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.currentStateLocked() == StateOpen && !bypass {
		remaining := cb.config.ResetTimeout - time.Since(cb.lastFailure)
		if remaining < 0 {
			remaining = 0
		}
		return &CircuitOpenError{Breaker: cb.name, RetryAfter: remaining}
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccessLocked()
		return
	}

	if !cb.config.IsFailure(err) {
		// Not counted, but still propagated by the caller.
		return
	}

	cb.lastFailure = time.Now()

	switch cb.state {
	case StateHalfOpen:
		// A single qualifying failure during probation reopens.
		cb.transitionLocked(StateOpen)
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionLocked(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenSuccessThreshold {
			cb.transitionLocked(StateClosed)
		}
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
	}
}

// currentStateLocked applies the timed open→half-open transition before
// reporting the state.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

// transitionLocked moves to a new state, resetting counters on entry to
// closed or half-open, recording history and notifying the listener.
func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	cb.lastChange = time.Now()

	if to == StateClosed || to == StateHalfOpen {
		cb.failures = 0
		cb.successes = 0
	}

	cb.history = append(cb.history, Transition{From: from, To: to, At: cb.lastChange})
	if len(cb.history) > stateHistorySize {
		cb.history = cb.history[len(cb.history)-stateHistorySize:]
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

// Health is a point-in-time snapshot of a breaker.
type Health struct {
	Name        string
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
	TimeInState time.Duration
	History     []Transition
}

// Health returns a snapshot of the breaker's state and counters.
func (cb *CircuitBreaker) Health() Health {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentStateLocked()
	history := make([]Transition, len(cb.history))
	copy(history, cb.history)

	return Health{
		Name:        cb.name,
		State:       state,
		Failures:    cb.failures,
		Successes:   cb.successes,
		LastFailure: cb.lastFailure,
		TimeInState: time.Since(cb.lastChange),
		History:     history,
	}
}
