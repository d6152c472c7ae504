package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Angleito/walgit-sub001/config"
	"github.com/Angleito/walgit-sub001/strategy"
)

// noRetry keeps tests to a single attempt per execution.
func noRetry() *config.RetrySettings {
	return &config.RetrySettings{RetryCount: -1, InitialDelay: time.Millisecond}
}

func newTestExecutor(t *testing.T, cfg Config) *Executor {
	t.Helper()
	if cfg.Strategy == nil {
		s, err := strategy.New(strategy.Config{Logger: zaptest.NewLogger(t)})
		if err != nil {
			t.Fatalf("strategy.New: %v", err)
		}
		cfg.Strategy = s
	}
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func okItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID: fmt.Sprintf("item-%d", i),
			Op: func(ctx context.Context) error { return nil },
		}
	}
	return items
}

func TestGroupItems_Fixed(t *testing.T) {
	groups := groupItems(okItems(10), 4, 0, false)

	want := []int{4, 4, 2}
	if len(groups) != len(want) {
		t.Fatalf("groups = %d, want %d", len(groups), len(want))
	}
	next := 0
	for gi, g := range groups {
		if len(g) != want[gi] {
			t.Errorf("group %d size = %d, want %d", gi, len(g), want[gi])
		}
		for _, it := range g {
			if it.index != next {
				t.Errorf("group %d item index = %d, want %d", gi, it.index, next)
			}
			next++
		}
	}
}

func TestGroupItems_AdaptiveSizeBudget(t *testing.T) {
	items := okItems(4)
	for i := range items {
		items[i].Size = 3
	}

	// Budget of 7 admits two 3-byte items per group.
	groups := groupItems(items, 10, 7, true)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	for gi, g := range groups {
		if len(g) != 2 {
			t.Errorf("group %d size = %d, want 2", gi, len(g))
		}
	}
}

func TestGroupItems_AdaptiveSizeCap(t *testing.T) {
	// Tiny items never hit the budget, so the size cap cuts groups.
	groups := groupItems(okItems(5), 2, 1<<20, true)

	want := []int{2, 2, 1}
	if len(groups) != len(want) {
		t.Fatalf("groups = %d, want %d", len(groups), len(want))
	}
	for gi, g := range groups {
		if len(g) != want[gi] {
			t.Errorf("group %d size = %d, want %d", gi, len(g), want[gi])
		}
	}
}

func TestExecutor_OrderPreserved(t *testing.T) {
	e := newTestExecutor(t, Config{})

	res, err := e.Execute(context.Background(), "blob-upload", okItems(10), Options{
		BatchSize: 4,
		Fixed:     true,
		Retry:     noRetry(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Total != 10 || res.SuccessCount != 10 || res.FailureCount != 0 {
		t.Fatalf("result = %d/%d/%d, want 10/10/0", res.Total, res.SuccessCount, res.FailureCount)
	}
	for i, r := range res.Successful {
		if r.Index != i {
			t.Errorf("Successful[%d].Index = %d, want %d", i, r.Index, i)
		}
		if want := fmt.Sprintf("item-%d", i); r.ID != want {
			t.Errorf("Successful[%d].ID = %q, want %q", i, r.ID, want)
		}
	}
}

func TestExecutor_GroupFallbackRecoversItems(t *testing.T) {
	e := newTestExecutor(t, Config{})

	boom := errors.New("blob checksum mismatch")
	items := okItems(4)
	items[2].Op = func(ctx context.Context) error { return boom }

	res, err := e.Execute(context.Background(), "blob-upload", items, Options{
		BatchSize: 4,
		Retry:     noRetry(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.SuccessCount != 3 || res.FailureCount != 1 {
		t.Fatalf("result = %d/%d, want 3 successes and 1 failure", res.SuccessCount, res.FailureCount)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != "item-2" {
		t.Fatalf("Failed = %+v, want just item-2", res.Failed)
	}
	if !errors.Is(res.Failed[0].Err, boom) {
		t.Errorf("failed item error = %v, want wrapped cause", res.Failed[0].Err)
	}
}

func TestExecutor_NonAdaptiveGroupFailureSinksGroup(t *testing.T) {
	e := newTestExecutor(t, Config{})

	items := okItems(3)
	items[1].Op = func(ctx context.Context) error { return errors.New("object not found") }

	res, err := e.Execute(context.Background(), "blob-read", items, Options{
		BatchSize: 3,
		Fixed:     true,
		Retry:     noRetry(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureCount != 3 {
		t.Fatalf("FailureCount = %d, want the whole group", res.FailureCount)
	}
	for _, r := range res.Failed {
		if r.Err == nil {
			t.Errorf("item %d missing group error", r.Index)
		}
	}
}

func TestExecutor_SingleItemGroupFailsDirectly(t *testing.T) {
	e := newTestExecutor(t, Config{})

	items := okItems(2)
	items[0].Op = func(ctx context.Context) error { return errors.New("gas budget exceeded") }

	res, err := e.Execute(context.Background(), "tx-submit", items, Options{
		BatchSize: 1,
		Retry:     noRetry(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.SuccessCount != 1 || res.FailureCount != 1 {
		t.Fatalf("result = %d/%d, want 1/1", res.SuccessCount, res.FailureCount)
	}
	if res.Failed[0].ID != "item-0" {
		t.Errorf("failed item = %q, want item-0", res.Failed[0].ID)
	}
}

func TestExecutor_EmptyBatch(t *testing.T) {
	e := newTestExecutor(t, Config{})
	res, err := e.Execute(context.Background(), "noop", nil, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Total != 0 || res.SuccessCount != 0 || res.FailureCount != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	e := newTestExecutor(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Execute(ctx, "blob-upload", okItems(6), Options{BatchSize: 2, Retry: noRetry()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.FailureCount != 6 {
		t.Errorf("FailureCount = %d, want 6", res.FailureCount)
	}
}

func TestExecutor_Progress(t *testing.T) {
	var mu sync.Mutex
	var events []Progress

	e := newTestExecutor(t, Config{
		OnProgress: func(p Progress) {
			mu.Lock()
			events = append(events, p)
			mu.Unlock()
		},
	})

	if _, err := e.Execute(context.Background(), "blob-upload", okItems(10), Options{
		BatchSize: 4,
		Fixed:     true,
		Retry:     noRetry(),
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 3 {
		t.Fatalf("events = %d, want at least grouping + executing + done", len(events))
	}
	if events[0].Phase != PhaseGrouping {
		t.Errorf("first phase = %q, want %q", events[0].Phase, PhaseGrouping)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseDone {
		t.Errorf("last phase = %q, want %q", last.Phase, PhaseDone)
	}
	if last.Completed != 10 {
		t.Errorf("final Completed = %d, want 10", last.Completed)
	}
	executing := 0
	for _, p := range events {
		if p.Phase == PhaseExecuting {
			executing++
			if p.Concurrency < 1 {
				t.Errorf("executing event concurrency = %d", p.Concurrency)
			}
		}
	}
	if executing != 3 {
		t.Errorf("executing events = %d, want one per group", executing)
	}
}

func TestTuner_AdjustsLimit(t *testing.T) {
	limiter := NewLimiter(2)
	tun := &tuner{limiter: limiter, max: 5}

	for i := 0; i < 5; i++ {
		tun.record(10 * time.Millisecond)
	}
	if got := limiter.Limit(); got != 3 {
		t.Errorf("limit after fast window = %d, want 3", got)
	}

	for i := 0; i < 5; i++ {
		tun.record(300 * time.Millisecond)
	}
	if got := limiter.Limit(); got != 2 {
		t.Errorf("limit after slow window = %d, want 2", got)
	}
}

func TestTuner_RespectsBounds(t *testing.T) {
	limiter := NewLimiter(1)
	tun := &tuner{limiter: limiter, max: 1}

	for i := 0; i < 5; i++ {
		tun.record(300 * time.Millisecond)
	}
	if got := limiter.Limit(); got != 1 {
		t.Errorf("limit = %d, want floor of 1", got)
	}

	for i := 0; i < 5; i++ {
		tun.record(time.Millisecond)
	}
	if got := limiter.Limit(); got != 1 {
		t.Errorf("limit = %d, want cap of 1", got)
	}
}

func TestTuner_OnlyEveryFifthCompletion(t *testing.T) {
	limiter := NewLimiter(2)
	tun := &tuner{limiter: limiter, max: 5}

	for i := 0; i < 4; i++ {
		tun.record(time.Millisecond)
		if got := limiter.Limit(); got != 2 {
			t.Fatalf("limit adjusted after %d completions", i+1)
		}
	}
	tun.record(time.Millisecond)
	if got := limiter.Limit(); got != 3 {
		t.Errorf("limit = %d, want 3 after fifth completion", got)
	}
}
