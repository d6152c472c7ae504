package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Angleito/walgit-sub001/config"
	"github.com/Angleito/walgit-sub001/health"
	"github.com/Angleito/walgit-sub001/strategy"
)

// Adaptive concurrency tuning thresholds.
const (
	tuneEvery      = 5
	fastCompletion = 50 * time.Millisecond
	slowCompletion = 200 * time.Millisecond
)

// Progress phases reported to the OnProgress callback.
const (
	PhaseGrouping  = "grouping"
	PhaseExecuting = "executing"
	PhaseDone      = "done"
)

// Item is one unit of work in a batch.
type Item struct {
	// ID identifies the item in results, e.g. a blob name or object ID.
	ID string

	// Size is the estimated payload size in bytes, used by adaptive
	// grouping to keep each group under the size budget.
	Size int64

	// Op performs the work. Required.
	Op func(ctx context.Context) error
}

// ItemResult is the outcome for one item, carrying its position in the
// original submission.
type ItemResult struct {
	Index    int
	ID       string
	Err      error
	Duration time.Duration
}

// Result reports a batch outcome in the caller's submission order.
type Result struct {
	Successful   []ItemResult
	Failed       []ItemResult
	Total        int
	SuccessCount int
	FailureCount int
}

// Progress is a point-in-time view of a running batch, delivered to
// the OnProgress callback. Callbacks may arrive concurrently from
// multiple group workers.
type Progress struct {
	Phase       string
	Completed   int
	Active      int
	Concurrency int
	Elapsed     time.Duration
}

// Config configures an Executor.
type Config struct {
	// Strategy executes groups and fallback items. Required.
	Strategy *strategy.Strategy

	// Settings supply grouping and concurrency defaults.
	// Default: config.Default().Batch
	Settings config.BatchSettings

	// Monitor tunes batch size and concurrency for network-aware
	// executions. Optional.
	Monitor *health.Monitor

	// Logger receives operational logs. Default: zap.NewNop().
	Logger *zap.Logger

	// OnProgress receives progress updates. Optional.
	OnProgress func(Progress)
}

// Executor groups work items and runs the groups concurrently through
// a resilient strategy, adapting its concurrency to measured latency.
type Executor struct {
	config Config
}

// New creates a batch executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("batch: Strategy is required")
	}
	if cfg.Settings == (config.BatchSettings{}) {
		cfg.Settings = config.Default().Batch
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{config: cfg}, nil
}

// Options control a single batch execution.
type Options struct {
	// Kind selects the circuit breaker for all executions
	// (config.KindNetwork, KindStorage, KindTransaction).
	Kind string

	// Component names the subsystem for failure analytics.
	Component string

	// BatchSize caps the number of items per group.
	// Default: settings value
	BatchSize int

	// Concurrency caps simultaneously executing groups.
	// Default: settings value
	Concurrency int

	// SizeBudget caps the estimated bytes per group when adaptive
	// grouping is active.
	// Default: settings value
	SizeBudget int64

	// Retry overrides the strategy's retry parameters for every group
	// and fallback execution in this batch.
	Retry *config.RetrySettings

	// Fixed forces fixed-size grouping and disables the per-item
	// fallback even when adaptive batching is enabled in settings.
	Fixed bool

	// NetworkAware applies monitor recommendations to the batch size,
	// concurrency, and per-operation retry count.
	NetworkAware bool

	// Metadata is attached to failure records for this batch.
	Metadata map[string]string
}

// Execute runs the items as concurrent groups and returns per-item
// outcomes normalized to the original submission order. A failed group
// with more than one item is retried item by item when adaptive
// batching is active, so one bad item does not sink its group.
func (e *Executor) Execute(ctx context.Context, operation string, items []Item, opts Options) (*Result, error) {
	start := time.Now()
	out := &Result{Total: len(items)}
	if len(items) == 0 {
		return out, nil
	}

	batchSize, maxConcurrency, sizeBudget, adaptive := e.params(opts)

	e.progress(PhaseGrouping, 0, 0, maxConcurrency, start)
	groups := groupItems(items, batchSize, sizeBudget, adaptive)

	initial := min(maxConcurrency, len(groups))
	limiter := NewLimiter(initial)
	tun := &tuner{limiter: limiter, max: maxConcurrency}

	e.config.Logger.Debug("executing batch",
		zap.String("operation", operation),
		zap.Int("items", len(items)),
		zap.Int("groups", len(groups)),
		zap.Int("concurrency", initial),
		zap.Bool("adaptive", adaptive))

	results := make([]ItemResult, len(items))
	var completed atomic.Int64
	var wg sync.WaitGroup

	for _, group := range groups {
		wg.Add(1)
		go func(group []indexedItem) {
			defer wg.Done()

			if err := limiter.Acquire(ctx); err != nil {
				for _, it := range group {
					results[it.index] = ItemResult{Index: it.index, ID: it.ID, Err: err}
				}
				completed.Add(int64(len(group)))
				return
			}
			defer limiter.Release()

			e.runGroup(ctx, operation, group, opts, adaptive, tun, results)
			done := completed.Add(int64(len(group)))
			e.progress(PhaseExecuting, int(done), limiter.Active(), limiter.Limit(), start)
		}(group)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			out.Failed = append(out.Failed, r)
			out.FailureCount++
		} else {
			out.Successful = append(out.Successful, r)
			out.SuccessCount++
		}
	}
	e.progress(PhaseDone, len(items), 0, limiter.Limit(), start)
	return out, ctx.Err()
}

// runGroup executes one group through the strategy, falling back to
// per-item execution when an adaptive multi-item group fails.
func (e *Executor) runGroup(ctx context.Context, operation string, group []indexedItem, opts Options, adaptive bool, tun *tuner, results []ItemResult) {
	sopts := strategy.Options{
		Kind:         opts.Kind,
		Component:    opts.Component,
		Retry:        opts.Retry,
		NetworkAware: opts.NetworkAware,
		Metadata:     opts.Metadata,
	}

	groupStart := time.Now()
	err := e.config.Strategy.Execute(ctx, operation, func(ctx context.Context) error {
		for _, it := range group {
			if err := it.Op(ctx); err != nil {
				return fmt.Errorf("item %q: %w", it.ID, err)
			}
		}
		return nil
	}, sopts)
	elapsed := time.Since(groupStart)
	tun.record(elapsed)

	if err == nil {
		per := elapsed / time.Duration(len(group))
		for _, it := range group {
			results[it.index] = ItemResult{Index: it.index, ID: it.ID, Duration: per}
		}
		return
	}

	if !adaptive || len(group) == 1 {
		for _, it := range group {
			results[it.index] = ItemResult{Index: it.index, ID: it.ID, Err: err, Duration: elapsed}
		}
		return
	}

	e.config.Logger.Warn("group failed, retrying items individually",
		zap.String("operation", operation),
		zap.Int("items", len(group)),
		zap.Error(err))

	for _, it := range group {
		itemStart := time.Now()
		ierr := e.config.Strategy.Execute(ctx, operation, it.Op, sopts)
		d := time.Since(itemStart)
		tun.record(d)
		results[it.index] = ItemResult{Index: it.index, ID: it.ID, Err: ierr, Duration: d}
	}
}

// params resolves grouping and concurrency parameters from options,
// settings, and the network monitor.
func (e *Executor) params(opts Options) (batchSize, concurrency int, sizeBudget int64, adaptive bool) {
	s := e.config.Settings

	batchSize = opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	concurrency = opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.MaxConcurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	sizeBudget = opts.SizeBudget
	if sizeBudget <= 0 {
		sizeBudget = s.SizeBudget
	}

	adaptive = s.Adaptive && !opts.Fixed

	if opts.NetworkAware && e.config.Monitor != nil {
		p := e.config.Monitor.Recommend(health.Params{BatchSize: batchSize, Concurrency: concurrency})
		batchSize, concurrency = p.BatchSize, p.Concurrency
	}
	return batchSize, concurrency, sizeBudget, adaptive
}

func (e *Executor) progress(phase string, completed, active, concurrency int, start time.Time) {
	if e.config.OnProgress == nil {
		return
	}
	e.config.OnProgress(Progress{
		Phase:       phase,
		Completed:   completed,
		Active:      active,
		Concurrency: concurrency,
		Elapsed:     time.Since(start),
	})
}

// indexedItem tags an item with its position in the original
// submission so results can be normalized after concurrent execution.
type indexedItem struct {
	Item
	index int
}

// groupItems splits items into execution groups. Fixed grouping cuts
// every batchSize items; adaptive grouping additionally cuts when
// admitting the next item would exceed the size budget.
func groupItems(items []Item, batchSize int, sizeBudget int64, adaptive bool) [][]indexedItem {
	var groups [][]indexedItem
	var current []indexedItem
	var currentSize int64

	for i, item := range items {
		if adaptive && len(current) > 0 &&
			(len(current) >= batchSize || (sizeBudget > 0 && currentSize+item.Size > sizeBudget)) {
			groups = append(groups, current)
			current, currentSize = nil, 0
		}

		current = append(current, indexedItem{Item: item, index: i})
		currentSize += item.Size

		if !adaptive && len(current) >= batchSize {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// tuner adjusts the limiter from a moving average of the last few
// completion times, recomputed on every fifth completion.
type tuner struct {
	limiter *Limiter
	max     int

	mu     sync.Mutex
	recent [tuneEvery]time.Duration
	count  int
}

func (t *tuner) record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recent[t.count%tuneEvery] = d
	t.count++
	if t.count < tuneEvery || t.count%tuneEvery != 0 {
		return
	}

	var sum time.Duration
	for _, v := range t.recent {
		sum += v
	}
	avg := sum / tuneEvery

	limit := t.limiter.Limit()
	switch {
	case avg < fastCompletion && limit < t.max:
		t.limiter.SetLimit(limit + 1)
	case avg > slowCompletion && limit > 1:
		t.limiter.SetLimit(limit - 1)
	}
}
