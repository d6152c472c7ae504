package health

import (
	"testing"
	"time"
)

func TestRecommend_HealthyLowLatency(t *testing.T) {
	m := NewMonitor(MonitorConfig{Prober: &fakeProber{}})
	m.mu.Lock()
	m.status = StatusHealthy
	m.samples = []time.Duration{50 * time.Millisecond}
	m.mu.Unlock()

	base := Params{BatchSize: 10, Concurrency: 4, RetryCount: 3}
	got := m.Recommend(base)

	if got != base {
		t.Errorf("Recommend() = %+v, want baseline %+v", got, base)
	}
}

func TestRecommend_Unhealthy(t *testing.T) {
	m := NewMonitor(MonitorConfig{Prober: &fakeProber{}})
	m.mu.Lock()
	m.status = StatusUnhealthy
	m.mu.Unlock()

	got := m.Recommend(Params{BatchSize: 10, Concurrency: 4, RetryCount: 3})

	if got.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5 (halved)", got.BatchSize)
	}
	if got.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", got.Concurrency)
	}
	if got.RetryCount != 5 {
		t.Errorf("RetryCount = %d, want 5 (+2)", got.RetryCount)
	}
}

func TestRecommend_HighLatency(t *testing.T) {
	m := NewMonitor(MonitorConfig{Prober: &fakeProber{}})
	m.mu.Lock()
	m.status = StatusHealthy
	m.samples = []time.Duration{600 * time.Millisecond}
	m.mu.Unlock()

	got := m.Recommend(Params{BatchSize: 10, Concurrency: 4, RetryCount: 3})

	if got.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", got.BatchSize)
	}
	if got.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", got.Concurrency)
	}
	if got.RetryCount != 5 {
		t.Errorf("RetryCount = %d, want 5", got.RetryCount)
	}
}

func TestRecommend_ElevatedLatency(t *testing.T) {
	m := NewMonitor(MonitorConfig{Prober: &fakeProber{}})
	m.mu.Lock()
	m.status = StatusHealthy
	m.samples = []time.Duration{300 * time.Millisecond}
	m.mu.Unlock()

	got := m.Recommend(Params{BatchSize: 10, Concurrency: 4, RetryCount: 3})

	if got.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want 7 (3/4)", got.BatchSize)
	}
	if got.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", got.Concurrency)
	}
	if got.RetryCount != 4 {
		t.Errorf("RetryCount = %d, want 4 (+1)", got.RetryCount)
	}
}

func TestRecommend_FloorsAtOne(t *testing.T) {
	m := NewMonitor(MonitorConfig{Prober: &fakeProber{}})
	m.mu.Lock()
	m.status = StatusUnhealthy
	m.mu.Unlock()

	got := m.Recommend(Params{BatchSize: 1, Concurrency: 1, RetryCount: 0})

	if got.BatchSize < 1 || got.Concurrency < 1 {
		t.Errorf("Recommend() = %+v, want batch/concurrency >= 1", got)
	}
}
