package strategy

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Angleito/walgit-sub001/analytics"
	"github.com/Angleito/walgit-sub001/config"
	"github.com/Angleito/walgit-sub001/health"
	"github.com/Angleito/walgit-sub001/resilience"
)

// Config configures a Strategy.
type Config struct {
	// Settings supply retry, circuit, and batch defaults.
	// Default: config.Default()
	Settings config.Settings

	// Registry owns the per-kind circuit breakers. A private registry
	// is created when nil.
	Registry *resilience.Registry

	// Monitor supplies network-aware parameter tuning. Optional.
	Monitor *health.Monitor

	// Analytics receives every terminal failure and success attempt.
	// Optional.
	Analytics *analytics.Analytics

	// Logger receives operational logs. Default: zap.NewNop().
	Logger *zap.Logger

	// Meter receives execution metrics. Default: no-op meter.
	Meter metric.Meter

	// AttemptTimeout bounds each individual attempt.
	// Default: 0 (no per-attempt deadline)
	AttemptTimeout time.Duration
}

// Strategy composes circuit breaking, retry, health-aware tuning, and
// failure tracking behind a single call contract.
type Strategy struct {
	settings  config.Settings
	registry  *resilience.Registry
	monitor   *health.Monitor
	analytics *analytics.Analytics
	logger    *zap.Logger
	metrics   *execMetrics
	timeout   *resilience.Timeout
}

// New creates a resilient execution strategy.
func New(cfg Config) (*Strategy, error) {
	if cfg.Settings.Circuits == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = resilience.NewRegistry(resilience.CircuitBreakerConfig{})
	}

	m, err := newExecMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		settings:  cfg.Settings,
		registry:  cfg.Registry,
		monitor:   cfg.Monitor,
		analytics: cfg.Analytics,
		logger:    cfg.Logger,
		metrics:   m,
	}
	if cfg.AttemptTimeout > 0 {
		s.timeout = resilience.NewTimeout(resilience.TimeoutConfig{Timeout: cfg.AttemptTimeout})
	}
	return s, nil
}

// Options control a single resilient execution.
type Options struct {
	// Kind selects the circuit breaker and its thresholds
	// (config.KindNetwork, KindStorage, KindTransaction).
	// Default: network
	Kind string

	// Component names the subsystem for failure analytics.
	Component string

	// Retry overrides the settings-level retry parameters.
	Retry *config.RetrySettings

	// NetworkAware applies monitor recommendations to the retry count.
	NetworkAware bool

	// BypassCircuit skips the breaker's open check for this call.
	BypassCircuit bool

	// Metadata is attached to any failure record for this call.
	Metadata map[string]string
}

// Execute runs the operation under the full resilience stack: the
// kind's circuit breaker inside a retry loop, each attempt optionally
// deadline-bounded, with the outcome reported to failure analytics.
func (s *Strategy) Execute(ctx context.Context, operation string, op func(context.Context) error, opts Options) error {
	if opts.Kind == "" {
		opts.Kind = config.KindNetwork
	}

	breaker := s.breaker(opts.Kind)

	// The attempts counter must be fed before execution so failure
	// rates have an accurate denominator even if the process dies
	// mid-call.
	if s.analytics != nil {
		s.analytics.RecordSuccess(operation, opts.Component)
	}

	attempts := 1
	retryCfg := s.retryConfig(opts)
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = attempt + 1
		s.logger.Debug("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	retry := resilience.NewRetry(retryCfg)

	execute := op
	if s.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return s.timeout.Execute(ctx, inner)
		}
	}
	{
		inner := execute
		execute = func(ctx context.Context) error {
			return breaker.ExecuteWith(ctx, inner, resilience.ExecuteOptions{BypassCircuit: opts.BypassCircuit})
		}
	}

	start := time.Now()
	err := retry.Execute(ctx, execute)
	s.metrics.record(ctx, operation, opts.Kind, time.Since(start), err)

	if err == nil {
		return nil
	}
	return s.terminal(ctx, operation, opts, err, attempts)
}

// terminal reports a terminal failure to analytics and enriches it for
// the caller. Circuit-open errors keep their type so callers can read
// the retry ETA.
func (s *Strategy) terminal(ctx context.Context, operation string, opts Options, err error, attempts int) error {
	var record *analytics.FailureRecord
	if s.analytics != nil {
		record = s.analytics.LogFailure(ctx, err, analytics.Context{
			Operation: operation,
			Component: opts.Component,
			Metadata:  opts.Metadata,
		})
	}

	s.logger.Warn("operation failed",
		zap.String("operation", operation),
		zap.String("kind", opts.Kind),
		zap.Int("attempts", attempts),
		zap.Error(err))

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return err
	}

	category := analytics.CategoryUnknown
	if record != nil {
		category = record.ErrorType
	}
	return &OperationError{
		Operation:   operation,
		Category:    category,
		Attempts:    attempts,
		Remediation: remediationFor(category),
		Err:         err,
	}
}

// breaker returns the kind's circuit breaker, creating it on first use
// with the kind's thresholds and the analytics hooks composed in.
func (s *Strategy) breaker(kind string) *resilience.CircuitBreaker {
	circuit := s.settings.Circuit(kind)

	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold:         circuit.FailureThreshold,
		ResetTimeout:             circuit.ResetTimeout,
		HalfOpenSuccessThreshold: circuit.HalfOpenSuccessThreshold,
	}

	base := func(err error) bool {
		return err != nil && !resilience.IsValidation(err)
	}
	if s.analytics != nil {
		cfg.IsFailure = s.analytics.FailurePredicate(base)
		cfg.OnStateChange = s.analytics.StateListener(kind, "circuit")
	} else {
		cfg.IsFailure = base
	}

	return s.registry.GetWith(kind, cfg)
}

// retryConfig builds the retry parameters for one call, applying
// overrides and network-aware tuning.
func (s *Strategy) retryConfig(opts Options) resilience.RetryConfig {
	rs := s.settings.Retry
	if opts.Retry != nil {
		rs = *opts.Retry
	}

	retryCount := rs.RetryCount
	if opts.NetworkAware && s.monitor != nil {
		tuned := s.monitor.Recommend(health.Params{RetryCount: retryCount})
		retryCount = tuned.RetryCount
	}
	if retryCount <= 0 {
		retryCount = -1 // single attempt
	}

	return resilience.RetryConfig{
		RetryCount:    retryCount,
		InitialDelay:  rs.InitialDelay,
		BackoffFactor: rs.BackoffFactor,
		MaxDelay:      rs.MaxDelay,
		JitterFactor:  rs.JitterFactor,
	}
}

// Registry exposes the breaker registry for health aggregation.
func (s *Strategy) Registry() *resilience.Registry {
	return s.registry
}
