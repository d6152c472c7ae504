package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists failure records and the aggregated stats document.
// The record path is append-only (one row per record, keyed by id);
// the stats document is rewritten as a whole on each flush.
type Store interface {
	SaveRecord(ctx context.Context, r *FailureRecord) error
	SaveStats(ctx context.Context, doc *StatsDocument) error
	LoadStats(ctx context.Context) (*StatsDocument, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// StatsDocument is the aggregated counters document flushed to storage.
type StatsDocument struct {
	UpdatedAt  time.Time                `json:"updated_at"`
	Operations map[string]StatsCounters `json:"operations"`
	Components map[string]StatsCounters `json:"components"`
	Categories map[Category]int64       `json:"categories"`
}

// StatsCounters are the persisted counters for one stats key.
type StatsCounters struct {
	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// Schema for the analytics database.
const schema = `
CREATE TABLE IF NOT EXISTS failures (
    id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    error_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    operation TEXT,
    component TEXT,
    message TEXT NOT NULL,
    metadata TEXT,
    tx TEXT,
    created_at INTEGER DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_failures_timestamp ON failures(timestamp);
CREATE INDEX IF NOT EXISTS idx_failures_operation ON failures(operation);
CREATE INDEX IF NOT EXISTS idx_failures_component ON failures(component);
CREATE INDEX IF NOT EXISTS idx_failures_error_type ON failures(error_type);

CREATE TABLE IF NOT EXISTS stats (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    updated_at INTEGER NOT NULL,
    document TEXT NOT NULL
);
`

// sqliteStore is the sqlite-backed Store.
type sqliteStore struct {
	db *sql.DB
}

// OpenStore opens or creates the analytics database at the given path.
func OpenStore(dbPath string) (Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("analytics: create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("analytics: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("analytics: initialize schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) SaveRecord(ctx context.Context, r *FailureRecord) error {
	var metadata, tx any
	if len(r.Metadata) > 0 {
		b, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("analytics: encode metadata: %w", err)
		}
		metadata = string(b)
	}
	if r.Transaction != nil {
		b, err := json.Marshal(r.Transaction)
		if err != nil {
			return fmt.Errorf("analytics: encode transaction details: %w", err)
		}
		tx = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO failures (id, timestamp, error_type, severity, operation, component, message, metadata, tx)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Timestamp.Unix(), string(r.ErrorType), string(r.Severity),
		nullString(r.Operation), nullString(r.Component), r.Message, metadata, tx)
	if err != nil {
		return fmt.Errorf("analytics: save record %s: %w", r.ID, err)
	}
	return nil
}

func (s *sqliteStore) SaveStats(ctx context.Context, doc *StatsDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("analytics: encode stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stats (id, updated_at, document) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, document = excluded.document
	`, doc.UpdatedAt.Unix(), string(b))
	if err != nil {
		return fmt.Errorf("analytics: save stats: %w", err)
	}
	return nil
}

func (s *sqliteStore) LoadStats(ctx context.Context) (*StatsDocument, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM stats WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analytics: load stats: %w", err)
	}

	var doc StatsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("analytics: decode stats: %w", err)
	}
	return &doc, nil
}

// Cleanup removes records older than the cutoff and reclaims space.
func (s *sqliteStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM failures WHERE timestamp < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("analytics: cleanup: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	_, _ = s.db.ExecContext(ctx, "VACUUM")
	return deleted, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// nullString returns nil for empty strings so they store as NULL.
func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
