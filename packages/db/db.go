// Package db keeps a history of runs in a SQLite database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	p50_ms      REAL NOT NULL DEFAULT 0,
	p95_ms      REAL NOT NULL DEFAULT 0,
	p99_ms      REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS plan_results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	path        TEXT NOT NULL,
	name        TEXT NOT NULL,
	state       TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// RunRecord is a stored run summary.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Succeeded int
	Failed    int
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
}

// PlanRecord is a stored plan outcome.
type PlanRecord struct {
	Position   int
	Path       string
	Name       string
	State      string
	ErrorKind  string
	Error      string
	StatusCode int
	Duration   time.Duration
}

// History is the run-history store.
type History struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens the database named by connectionString and creates the
// schema when missing. Accepted forms are sqlite://path, sqlite:path and a
// plain file path.
func Open(connectionString string) (*History, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	h := &History{db: db, queryTimeout: 30 * time.Second}
	if err := h.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Migrate creates the history tables. It is idempotent.
func (h *History) Migrate(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	return nil
}

// RecordRun stores a run and its plan results in one transaction.
func (h *History) RecordRun(ctx context.Context, run *runner.RunResult) error {
	ctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, total, succeeded, failed, p50_ms, p95_ms, p99_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		run.Total(),
		run.Succeeded,
		run.Failed,
		toMillis(run.Latency.P50),
		toMillis(run.Latency.P95),
		toMillis(run.Latency.P99),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plan_results (run_id, position, path, name, state, error_kind, error, status_code, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, res := range run.Results {
		var path, name, kind, message string
		var status int
		if res.Plan != nil {
			path, name = res.Plan.Path, res.Plan.DisplayName()
		}
		if res.Err != nil {
			kind, message = res.Err.Kind.String(), res.Err.Error()
		}
		if res.Response != nil {
			status = res.Response.StatusCode
		}
		if _, err := stmt.ExecContext(ctx, run.ID.String(), i, path, name, res.State.String(), kind, message, status, res.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("failed to record plan %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, total, succeeded, failed, p50_ms, p95_ms, p99_ms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var (
			r                   RunRecord
			startedAt           string
			durationMs          int64
			p50Ms, p95Ms, p99Ms float64
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMs, &r.Total, &r.Succeeded, &r.Failed, &p50Ms, &p95Ms, &p99Ms); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", startedAt, err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.P50, r.P95, r.P99 = fromMillis(p50Ms), fromMillis(p95Ms), fromMillis(p99Ms)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// PlanResults returns the stored plans of a run in execution order.
func (h *History) PlanResults(ctx context.Context, runID string) ([]PlanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()

	rows, err := h.db.QueryContext(ctx,
		`SELECT position, path, name, state, error_kind, error, status_code, duration_ms
		 FROM plan_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := make([]PlanRecord, 0)
	for rows.Next() {
		var p PlanRecord
		var durationMs int64
		if err := rows.Scan(&p.Position, &p.Path, &p.Name, &p.State, &p.ErrorKind, &p.Error, &p.StatusCode, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

func toMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// parseConnectionString returns the SQLite DSN of connStr.
// Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - path/to/history.db
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case connStr == "":
		return "", fmt.Errorf("empty history database path")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	default:
		return connStr, nil
	}
}
