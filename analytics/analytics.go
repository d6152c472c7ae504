package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Angleito/walgit-sub001/config"
)

// Config configures the failure analytics engine.
type Config struct {
	// Store persists failure records and the stats document. Optional;
	// without it the engine is purely in-memory.
	Store Store

	// Logger receives operational logs. Default: zap.NewNop().
	Logger *zap.Logger

	// BufferSize bounds the in-memory record buffer.
	// Default: 1000
	BufferSize int

	// RecentFailures bounds the per-operation recent failure list.
	// Default: 100
	RecentFailures int

	// MinPatternCount is the occurrence floor for a reportable pattern.
	// Default: 3
	MinPatternCount int

	// Retention is how long records participate in pattern tracking and
	// how long persisted rows are kept by Cleanup.
	// Default: 7 days
	Retention time.Duration

	// FlushInterval is the debounce period for stats persistence.
	// Default: 5 seconds
	FlushInterval time.Duration
}

// Analytics classifies, buffers, persists, and correlates failures.
type Analytics struct {
	config Config

	mu       sync.Mutex
	buffer   []*FailureRecord
	opStats  map[string]*OperationStats
	cmpStats map[string]*OperationStats
	byCat    map[Category]int64
	patterns map[string]*Pattern
	dirty    bool

	flushDone chan struct{}
	closeOnce sync.Once
}

// New creates a failure analytics engine. When a Store is configured,
// a background flusher persists the stats document on the debounce
// interval; Close stops it and flushes pending state.
func New(config Config) *Analytics {
	// Apply defaults
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.RecentFailures <= 0 {
		config.RecentFailures = 100
	}
	if config.MinPatternCount <= 0 {
		config.MinPatternCount = 3
	}
	if config.Retention <= 0 {
		config.Retention = 7 * 24 * time.Hour
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}

	a := &Analytics{
		config:    config,
		opStats:   make(map[string]*OperationStats),
		cmpStats:  make(map[string]*OperationStats),
		byCat:     make(map[Category]int64),
		patterns:  make(map[string]*Pattern),
		flushDone: make(chan struct{}),
	}

	if config.Store != nil {
		go a.flushLoop()
	} else {
		close(a.flushDone)
	}

	return a
}

// NewFromSettings builds an engine from the settings document, backed
// by the configured sqlite store when a database path is set.
func NewFromSettings(s config.AnalyticsSettings, logger *zap.Logger) (*Analytics, error) {
	var store Store
	if s.DBPath != "" {
		st, err := OpenStore(s.DBPath)
		if err != nil {
			return nil, err
		}
		store = st
	}
	return New(Config{
		Store:         store,
		Logger:        logger,
		BufferSize:    s.BufferSize,
		Retention:     time.Duration(s.RetentionDays) * 24 * time.Hour,
		FlushInterval: s.FlushInterval,
	}), nil
}

// LogFailure classifies the error, records it in the buffer and stats,
// persists it, and feeds the pattern detector. It never fails the
// caller: persistence errors are logged and swallowed.
func (a *Analytics) LogFailure(ctx context.Context, err error, fctx Context) *FailureRecord {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}

	record := &FailureRecord{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		ErrorType:   classifyCategory(err, fctx),
		Severity:    normalizeSeverity(fctx.Severity, message),
		Operation:   fctx.Operation,
		Component:   fctx.Component,
		Message:     message,
		Metadata:    fctx.Metadata,
		Transaction: fctx.Transaction,
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, record)
	if len(a.buffer) > a.config.BufferSize {
		a.buffer = a.buffer[len(a.buffer)-a.config.BufferSize:]
	}

	a.recordFailureLocked(a.opStats, record.Operation, record)
	a.recordFailureLocked(a.cmpStats, record.Component, record)
	a.byCat[record.ErrorType]++
	a.detectPatternsLocked(record)
	a.dirty = true
	a.mu.Unlock()

	if a.config.Store != nil {
		if serr := a.config.Store.SaveRecord(ctx, record); serr != nil {
			a.config.Logger.Warn("failed to persist failure record",
				zap.String("record_id", record.ID),
				zap.Error(serr))
		}
	}

	a.config.Logger.Debug("failure logged",
		zap.String("record_id", record.ID),
		zap.String("operation", record.Operation),
		zap.String("component", record.Component),
		zap.String("error_type", string(record.ErrorType)),
		zap.String("severity", string(record.Severity)))

	return record
}

// RecordSuccess increments attempt and success counters. Accurate
// failure rates require calling this for every successful operation.
func (a *Analytics) RecordSuccess(operation, component string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recordSuccessLocked(a.opStats, operation)
	a.recordSuccessLocked(a.cmpStats, component)
	a.dirty = true
}

func (a *Analytics) recordSuccessLocked(stats map[string]*OperationStats, key string) {
	if key == "" {
		return
	}
	s := a.statsEntryLocked(stats, key)
	s.Attempts++
	s.Successes++
}

func (a *Analytics) recordFailureLocked(stats map[string]*OperationStats, key string, r *FailureRecord) {
	if key == "" {
		return
	}
	s := a.statsEntryLocked(stats, key)
	s.Attempts++
	s.Failures++
	s.RecentFailures = append(s.RecentFailures, summarize(r))
	if len(s.RecentFailures) > a.config.RecentFailures {
		s.RecentFailures = s.RecentFailures[len(s.RecentFailures)-a.config.RecentFailures:]
	}
}

func (a *Analytics) statsEntryLocked(stats map[string]*OperationStats, key string) *OperationStats {
	s, ok := stats[key]
	if !ok {
		s = &OperationStats{}
		stats[key] = s
	}
	return s
}

// Stats returns a copy of the counters for one operation. The bool is
// false when nothing has been recorded for the name.
func (a *Analytics) Stats(operation string) (OperationStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.opStats[operation]
	if !ok {
		return OperationStats{}, false
	}
	out := *s
	out.RecentFailures = append([]FailureSummary(nil), s.RecentFailures...)
	return out, true
}

// Recent returns up to n most recent failure records, newest last.
func (a *Analytics) Recent(n int) []*FailureRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n > len(a.buffer) {
		n = len(a.buffer)
	}
	out := make([]*FailureRecord, n)
	copy(out, a.buffer[len(a.buffer)-n:])
	return out
}

// flushLoop persists the stats document on the debounce interval while
// there are unflushed changes.
func (a *Analytics) flushLoop() {
	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.flushDone:
			return
		case <-ticker.C:
			a.flushStats()
		}
	}
}

// flushStats writes the aggregated stats document if it changed since
// the last flush. Serialized by the flush loop and Close.
func (a *Analytics) flushStats() {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	doc := a.statsDocumentLocked()
	a.dirty = false
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.config.Store.SaveStats(ctx, doc); err != nil {
		a.config.Logger.Warn("failed to flush stats", zap.Error(err))
		a.mu.Lock()
		a.dirty = true
		a.mu.Unlock()
	}
}

func (a *Analytics) statsDocumentLocked() *StatsDocument {
	doc := &StatsDocument{
		UpdatedAt:  time.Now(),
		Operations: make(map[string]StatsCounters, len(a.opStats)),
		Components: make(map[string]StatsCounters, len(a.cmpStats)),
		Categories: make(map[Category]int64, len(a.byCat)),
	}
	for k, s := range a.opStats {
		doc.Operations[k] = StatsCounters{Attempts: s.Attempts, Successes: s.Successes, Failures: s.Failures}
	}
	for k, s := range a.cmpStats {
		doc.Components[k] = StatsCounters{Attempts: s.Attempts, Successes: s.Successes, Failures: s.Failures}
	}
	for k, v := range a.byCat {
		doc.Categories[k] = v
	}
	return doc
}

// Cleanup deletes persisted records older than the retention window.
func (a *Analytics) Cleanup(ctx context.Context) (int64, error) {
	if a.config.Store == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-a.config.Retention)
	return a.config.Store.Cleanup(ctx, cutoff)
}

// Close stops the background flusher and flushes pending stats. The
// store itself is closed too when one is configured.
func (a *Analytics) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.config.Store != nil {
			close(a.flushDone)
			a.flushStats()
			err = a.config.Store.Close()
		}
	})
	return err
}
