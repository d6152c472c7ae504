package health

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Angleito/walgit-sub001/config"
)

// Status represents the coarse network health status.
type Status int

const (
	// StatusUnknown means no probe has completed yet.
	StatusUnknown Status = iota
	// StatusHealthy means the last probe succeeded.
	StatusHealthy
	// StatusUnhealthy means probes are failing consecutively.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Prober performs a single active network round trip and reports its
// latency.
type Prober interface {
	Probe(ctx context.Context) (time.Duration, error)
}

// ProberFunc is an adapter to allow ordinary functions to be used as
// Probers.
type ProberFunc func(ctx context.Context) (time.Duration, error)

// Probe performs the probe.
func (f ProberFunc) Probe(ctx context.Context) (time.Duration, error) {
	return f(ctx)
}

// DialProber probes by opening a TCP connection to Address.
type DialProber struct {
	// Address is the host:port to dial.
	Address string

	// Timeout bounds the dial.
	// Default: 3 seconds
	Timeout time.Duration
}

// Probe dials the address and returns the round-trip time.
func (p *DialProber) Probe(ctx context.Context) (time.Duration, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return 0, err
	}
	_ = conn.Close()
	return time.Since(start), nil
}

// MonitorConfig configures the network health monitor.
type MonitorConfig struct {
	// Prober performs active probes. Required.
	Prober Prober

	// ProbeInterval is the minimum time between active probes. Calls
	// inside the window return the cached status.
	// Default: 5 seconds
	ProbeInterval time.Duration

	// MaxSamples bounds the rolling latency window.
	// Default: 10
	MaxSamples int

	// UnhealthyAfter is the number of consecutive probe failures that
	// marks the network unhealthy.
	// Default: 3
	UnhealthyAfter int

	// Logger receives status-change logs. Default: zap.NewNop().
	Logger *zap.Logger
}

// Monitor tracks network health from periodic probes and advises
// adaptive execution parameters.
type Monitor struct {
	config MonitorConfig
	group  singleflight.Group

	mu            sync.Mutex
	samples       []time.Duration
	status        Status
	failureStreak int
	lastProbe     time.Time
}

// NewMonitorFromSettings builds a monitor that probes the configured
// address over TCP.
func NewMonitorFromSettings(s config.HealthSettings, logger *zap.Logger) *Monitor {
	return NewMonitor(MonitorConfig{
		Prober:         &DialProber{Address: s.ProbeAddress},
		ProbeInterval:  s.ProbeInterval,
		MaxSamples:     s.MaxSamples,
		UnhealthyAfter: s.UnhealthyAfter,
		Logger:         logger,
	})
}

// NewMonitor creates a network health monitor.
func NewMonitor(config MonitorConfig) *Monitor {
	// Apply defaults
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = 5 * time.Second
	}
	if config.MaxSamples <= 0 {
		config.MaxSamples = 10
	}
	if config.UnhealthyAfter <= 0 {
		config.UnhealthyAfter = 3
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Monitor{
		config: config,
		status: StatusUnknown,
	}
}

// Healthy reports whether the network is currently considered healthy.
// Probes are rate limited: calls within ProbeInterval of the previous
// probe return the cached status, and concurrent callers share a single
// in-flight probe.
func (m *Monitor) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	due := time.Since(m.lastProbe) >= m.config.ProbeInterval
	cached := m.status
	m.mu.Unlock()

	if !due {
		return cached != StatusUnhealthy
	}

	v, _, _ := m.group.Do("probe", func() (any, error) {
		return m.probe(ctx), nil
	})
	return v.(Status) != StatusUnhealthy
}

// probe runs one active probe and folds the result into the status.
func (m *Monitor) probe(ctx context.Context) Status {
	// Recheck the gate: a caller that lost the singleflight race and
	// re-entered Do must not trigger a second probe.
	m.mu.Lock()
	if time.Since(m.lastProbe) < m.config.ProbeInterval {
		status := m.status
		m.mu.Unlock()
		return status
	}
	m.lastProbe = time.Now()
	m.mu.Unlock()

	latency, err := m.config.Prober.Probe(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.status
	if err != nil {
		m.failureStreak++
		if m.failureStreak >= m.config.UnhealthyAfter {
			m.status = StatusUnhealthy
		}
		if m.status != prev {
			m.config.Logger.Warn("network became unhealthy",
				zap.Int("failure_streak", m.failureStreak),
				zap.Error(err))
		}
		return m.status
	}

	m.failureStreak = 0
	m.status = StatusHealthy
	m.samples = append(m.samples, latency)
	if len(m.samples) > m.config.MaxSamples {
		m.samples = m.samples[len(m.samples)-m.config.MaxSamples:]
	}
	if prev == StatusUnhealthy {
		m.config.Logger.Info("network recovered",
			zap.Duration("latency", latency))
	}
	return m.status
}

// Status returns the cached status without probing.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// defaultLatency is assumed when no samples have been collected.
const defaultLatency = 100 * time.Millisecond

// AverageLatency returns the mean of the rolling latency window, or
// 100ms when no samples exist yet.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averageLatencyLocked()
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.samples) == 0 {
		return defaultLatency
	}
	var total time.Duration
	for _, s := range m.samples {
		total += s
	}
	return total / time.Duration(len(m.samples))
}
