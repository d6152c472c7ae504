package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// RetryCount is the number of retries after the initial attempt,
	// so an operation is invoked at most RetryCount+1 times. Use a
	// negative value for a single attempt with no retries.
	// Default: 3
	RetryCount int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	// Default: 2.0
	BackoffFactor float64

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// JitterFactor spreads each delay uniformly across
	// [1-JitterFactor, 1+JitterFactor] of its nominal value to avoid
	// synchronized retry storms.
	// Default: 0.1
	JitterFactor float64

	// IsRetryable determines if an error should trigger another attempt.
	// Default: DefaultRetryable.
	IsRetryable func(err error) bool

	// OnRetry is called before each retry attempt with the upcoming
	// attempt number (1-based), the error, and the chosen delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with exponential backoff and jitter.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.RetryCount < 0 {
		config.RetryCount = 0
	} else if config.RetryCount == 0 {
		config.RetryCount = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.JitterFactor < 0 || config.JitterFactor >= 1 {
		config.JitterFactor = 0.1
	}
	if config.IsRetryable == nil {
		config.IsRetryable = DefaultRetryable
	}

	return &Retry{config: config}
}

// Execute runs the operation, retrying qualifying failures with backoff.
// Validation and circuit-open errors never retry regardless of the
// configured predicate. After the final attempt the last error is
// returned as-is.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	delay := float64(r.config.InitialDelay)

	for attempt := 0; attempt <= r.config.RetryCount; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err) || attempt == r.config.RetryCount {
			break
		}

		wait := r.jittered(delay)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= r.config.BackoffFactor
	}

	return lastErr
}

func (r *Retry) shouldRetry(err error) bool {
	if IsValidation(err) {
		return false
	}
	var coe *CircuitOpenError
	if errors.As(err, &coe) {
		return false
	}
	return r.config.IsRetryable(err)
}

// jittered applies the multiplicative jitter and the max-delay cap.
func (r *Retry) jittered(delay float64) time.Duration {
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	factor := 1 - r.config.JitterFactor + 2*r.config.JitterFactor*rand.Float64()
	d := time.Duration(delay * factor)
	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	return d
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// transientFragments are message fragments that mark an error as a
// likely transient fault. This is a heuristic and may misclassify;
// callers with typed errors should supply their own predicate.
var transientFragments = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"rate limit",
	"too many requests",
	"temporarily unavailable",
	"service unavailable",
	"no such host",
	"dns",
	"try again",
	"unexpected eof",
	"eof",
}

// DefaultRetryable reports whether err looks like a transient fault.
// Unmatched errors are treated as retryable so that unclassified
// failures still get a bounded number of attempts.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range transientFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	// Unknown errors are conservatively retryable.
	return true
}
