// Package config defines the resilience framework settings and their
// YAML loading.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration for the framework.
type Settings struct {
	Retry     RetrySettings             `yaml:"retry"`
	Circuits  map[string]CircuitSettings `yaml:"circuits"`
	Health    HealthSettings            `yaml:"health"`
	Batch     BatchSettings             `yaml:"batch"`
	Analytics AnalyticsSettings         `yaml:"analytics"`
}

// RetrySettings configure the retry engine.
type RetrySettings struct {
	RetryCount    int           `yaml:"retry_count"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	JitterFactor  float64       `yaml:"jitter_factor"`
}

// CircuitSettings configure one circuit breaker kind.
type CircuitSettings struct {
	FailureThreshold         int           `yaml:"failure_threshold"`
	ResetTimeout             time.Duration `yaml:"reset_timeout"`
	HalfOpenSuccessThreshold int           `yaml:"half_open_success_threshold"`
}

// HealthSettings configure the network health monitor.
type HealthSettings struct {
	ProbeAddress   string        `yaml:"probe_address"`
	ProbeInterval  time.Duration `yaml:"probe_interval"`
	MaxSamples     int           `yaml:"max_samples"`
	UnhealthyAfter int           `yaml:"unhealthy_after"`
}

// BatchSettings configure the adaptive batch executor.
type BatchSettings struct {
	BatchSize      int   `yaml:"batch_size"`
	MaxConcurrency int   `yaml:"max_concurrency"`
	Adaptive       bool  `yaml:"adaptive"`
	SizeBudget     int64 `yaml:"size_budget"`
}

// AnalyticsSettings configure failure analytics and its storage.
type AnalyticsSettings struct {
	DBPath        string        `yaml:"db_path"`
	BufferSize    int           `yaml:"buffer_size"`
	RetentionDays int           `yaml:"retention_days"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Circuit kinds with distinct default thresholds. Storage calls trip
// faster and recover sooner than general network calls; transactions
// sit in between.
const (
	KindNetwork     = "network"
	KindStorage     = "storage"
	KindTransaction = "transaction"
)

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Retry: RetrySettings{
			RetryCount:    3,
			InitialDelay:  100 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxDelay:      30 * time.Second,
			JitterFactor:  0.1,
		},
		Circuits: map[string]CircuitSettings{
			KindNetwork: {
				FailureThreshold:         5,
				ResetTimeout:             30 * time.Second,
				HalfOpenSuccessThreshold: 1,
			},
			KindStorage: {
				FailureThreshold:         3,
				ResetTimeout:             10 * time.Second,
				HalfOpenSuccessThreshold: 2,
			},
			KindTransaction: {
				FailureThreshold:         4,
				ResetTimeout:             20 * time.Second,
				HalfOpenSuccessThreshold: 1,
			},
		},
		Health: HealthSettings{
			ProbeInterval:  5 * time.Second,
			MaxSamples:     10,
			UnhealthyAfter: 3,
		},
		Batch: BatchSettings{
			BatchSize:      10,
			MaxConcurrency: 4,
			Adaptive:       true,
			SizeBudget:     4 << 20,
		},
		Analytics: AnalyticsSettings{
			BufferSize:    1000,
			RetentionDays: 7,
			FlushInterval: 5 * time.Second,
		},
	}
}

// Load reads settings from a YAML file, backfilling unset fields with
// the defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	s.backfill()
	return s, nil
}

// backfill restores defaults for zeroed fields so a sparse YAML file
// cannot disable backoff or unbound the buffers.
func (s *Settings) backfill() {
	def := Default()

	if s.Retry.RetryCount < 0 {
		s.Retry.RetryCount = 0
	}
	if s.Retry.InitialDelay <= 0 {
		s.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if s.Retry.BackoffFactor <= 0 {
		s.Retry.BackoffFactor = def.Retry.BackoffFactor
	}
	if s.Retry.MaxDelay <= 0 {
		s.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if s.Circuits == nil {
		s.Circuits = def.Circuits
	}
	for kind, c := range def.Circuits {
		if _, ok := s.Circuits[kind]; !ok {
			s.Circuits[kind] = c
		}
	}
	if s.Health.ProbeInterval <= 0 {
		s.Health.ProbeInterval = def.Health.ProbeInterval
	}
	if s.Health.MaxSamples <= 0 {
		s.Health.MaxSamples = def.Health.MaxSamples
	}
	if s.Health.UnhealthyAfter <= 0 {
		s.Health.UnhealthyAfter = def.Health.UnhealthyAfter
	}
	if s.Batch.BatchSize <= 0 {
		s.Batch.BatchSize = def.Batch.BatchSize
	}
	if s.Batch.MaxConcurrency <= 0 {
		s.Batch.MaxConcurrency = def.Batch.MaxConcurrency
	}
	if s.Batch.SizeBudget <= 0 {
		s.Batch.SizeBudget = def.Batch.SizeBudget
	}
	if s.Analytics.BufferSize <= 0 {
		s.Analytics.BufferSize = def.Analytics.BufferSize
	}
	if s.Analytics.RetentionDays <= 0 {
		s.Analytics.RetentionDays = def.Analytics.RetentionDays
	}
	if s.Analytics.FlushInterval <= 0 {
		s.Analytics.FlushInterval = def.Analytics.FlushInterval
	}
}

// Circuit returns the settings for a kind, falling back to the network
// kind for unknown names.
func (s *Settings) Circuit(kind string) CircuitSettings {
	if c, ok := s.Circuits[kind]; ok {
		return c
	}
	return s.Circuits[KindNetwork]
}
