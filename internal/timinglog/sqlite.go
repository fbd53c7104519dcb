package timinglog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const recordColumns = "run_id, beat_key, beat_name, action, mode, act, shot, beat, expected, actual, variance, recorded_at"

// SQLiteSink persists timing records in a local SQLite database.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the timing database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create timing db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteSink{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteSink) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteSink) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timing_records (
            id          INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id      TEXT NOT NULL,
            beat_key    TEXT NOT NULL,
            beat_name   TEXT,
            action      TEXT NOT NULL,
            mode        TEXT NOT NULL,
            act         INTEGER NOT NULL,
            shot        INTEGER NOT NULL,
            beat        INTEGER NOT NULL,
            expected    REAL NOT NULL,
            actual      REAL NOT NULL,
            variance    REAL NOT NULL,
            recorded_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_timing_records_run ON timing_records(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate timing db: %w", err)
		}
	}
	return nil
}

// Append inserts one record, retrying while the database is busy.
func (s *SQLiteSink) Append(ctx context.Context, rec Record) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO timing_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.Key, rec.BeatName, rec.Action, rec.Mode,
			rec.Act, rec.Shot, rec.Beat,
			rec.Expected, rec.Actual, rec.Variance,
			at.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// Records returns the records of runID in insertion order.
func (s *SQLiteSink) Records(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM timing_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query timing records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r     Record
			name  sql.NullString
			atRaw string
		)
		if err := rows.Scan(&r.RunID, &r.Key, &name, &r.Action, &r.Mode,
			&r.Act, &r.Shot, &r.Beat, &r.Expected, &r.Actual, &r.Variance, &atRaw); err != nil {
			return nil, fmt.Errorf("scan timing record: %w", err)
		}
		r.BeatName = name.String
		if at, perr := time.Parse(time.RFC3339Nano, atRaw); perr == nil {
			r.At = at
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the run ID of the most recently recorded beat, or "" when
// the database is empty.
func (s *SQLiteSink) LatestRun(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM timing_records ORDER BY id DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return runID, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
