// Package postgres persists journal events and timing records in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// EventRow represents a journal event stored in Postgres.
type EventRow struct {
	EventID   int64          `json:"event_id"`
	Timestamp time.Time      `json:"ts"`
	Level     string         `json:"level"`
	Event     string         `json:"event"`
	Message   *string        `json:"msg,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	ProjectID string         `json:"project_id"`
	RunID     *string        `json:"run_id,omitempty"`
}

// TimingRow is one beat timing record.
type TimingRow struct {
	RunID    string
	BeatKey  string
	BeatName string
	Action   string
	Mode     string
	Act      int
	Shot     int
	Beat     int
	Expected float64
	Actual   float64
	Variance float64
	At       time.Time
}

// Client manages the Postgres connection for one project.
type Client struct {
	db        *sql.DB
	projectID string
}

// New connects using the standard PG* environment variables.
func New(projectID string) (*Client, error) {
	return Open(ConnStringFromEnv(), projectID)
}

// Open connects with an explicit connection string and creates the tables.
func Open(connStr, projectID string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:        db,
		projectID: projectID,
	}
	if err := client.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return client, nil
}

// ConnStringFromEnv builds a lib/pq connection string from PGHOST, PGPORT,
// PGUSER, PGDATABASE and PGPASSWORD.
func ConnStringFromEnv() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "algoscene")
	dbname := getEnv("PGDATABASE", "algoscene")
	password := os.Getenv("PGPASSWORD")

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS journal_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			project_id TEXT NOT NULL,
			run_id     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_journal_events_ts ON journal_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_journal_events_project ON journal_events(project_id);

		CREATE TABLE IF NOT EXISTS timing_records (
			id          BIGSERIAL PRIMARY KEY,
			project_id  TEXT NOT NULL,
			run_id      TEXT NOT NULL,
			beat_key    TEXT NOT NULL,
			beat_name   TEXT,
			action      TEXT NOT NULL,
			mode        TEXT NOT NULL,
			act         INTEGER NOT NULL,
			shot        INTEGER NOT NULL,
			beat        INTEGER NOT NULL,
			expected    DOUBLE PRECISION NOT NULL,
			actual      DOUBLE PRECISION NOT NULL,
			variance    DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_timing_records_run ON timing_records(run_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts a journal event. It satisfies journal.Store.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]any, runID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}
	var runPtr *string
	if runID != "" {
		runPtr = &runID
	}

	query := `
		INSERT INTO journal_events (ts, level, event, msg, fields, project_id, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.projectID, runPtr)
	return err
}

// Query returns the last N journal events, newest first.
func (c *Client) Query(limit int) ([]EventRow, error) {
	limit = clampLimit(limit)

	query := `
		SELECT event_id, ts, level, event, msg, fields, project_id, run_id
		FROM journal_events
		WHERE project_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, runID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.ProjectID, &runID); err != nil {
			return nil, err
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		if runID.Valid {
			e.RunID = &runID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AppendTiming inserts one beat timing record.
func (c *Client) AppendTiming(ctx context.Context, row TimingRow) error {
	at := row.At
	if at.IsZero() {
		at = time.Now()
	}
	query := `
		INSERT INTO timing_records (project_id, run_id, beat_key, beat_name, action, mode,
			act, shot, beat, expected, actual, variance, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := c.db.ExecContext(ctx, query, c.projectID, row.RunID, row.BeatKey, row.BeatName,
		row.Action, row.Mode, row.Act, row.Shot, row.Beat, row.Expected, row.Actual, row.Variance, at)
	return err
}

// Timings returns the timing records of one run in execution order.
func (c *Client) Timings(ctx context.Context, runID string) ([]TimingRow, error) {
	query := `
		SELECT run_id, beat_key, beat_name, action, mode, act, shot, beat,
			expected, actual, variance, recorded_at
		FROM timing_records
		WHERE project_id = $1 AND run_id = $2
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, c.projectID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimingRow
	for rows.Next() {
		var r TimingRow
		var name sql.NullString
		if err := rows.Scan(&r.RunID, &r.BeatKey, &name, &r.Action, &r.Mode, &r.Act, &r.Shot, &r.Beat,
			&r.Expected, &r.Actual, &r.Variance, &r.At); err != nil {
			return nil, err
		}
		r.BeatName = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}
