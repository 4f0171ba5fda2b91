package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Init creates the schema tables.
func (s *SQLiteStore) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       TEXT NOT NULL UNIQUE,
		query        TEXT NOT NULL,
		inputs       TEXT NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL DEFAULT 'running',
		result       TEXT NOT NULL DEFAULT '',
		error        TEXT NOT NULL DEFAULT '',
		tokens       INTEGER NOT NULL DEFAULT 0,
		operations   INTEGER NOT NULL DEFAULT 0,
		started_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id         TEXT NOT NULL,
		type           TEXT NOT NULL,
		operation_id   TEXT NOT NULL DEFAULT '',
		alias          TEXT NOT NULL DEFAULT '',
		operation_type TEXT NOT NULL DEFAULT '',
		timestamp      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		result         TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRun records the start of a run.
func (s *SQLiteStore) InsertRun(r Run) error {
	inputs := r.Inputs
	if inputs == "" {
		inputs = "{}"
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, query, inputs, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Query, inputs, r.Status, r.StartedAt,
	)
	return err
}

// FinishRun records the outcome of a run.
func (s *SQLiteStore) FinishRun(f RunOutcome) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, result = ?, error = ?, tokens = ?, operations = ?, completed_at = ?
		 WHERE run_id = ?`,
		f.Status, f.Result, f.Error, f.Tokens, f.Operations, f.CompletedAt, f.RunID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, f.RunID)
	}
	return nil
}

// InsertEvent records an operation event.
func (s *SQLiteStore) InsertEvent(e RunEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, type, operation_id, alias, operation_type, timestamp, result, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Type, e.OperationID, e.Alias, e.OperationType, e.Timestamp, e.Result, e.Error,
	)
	return err
}

const runColumns = `id, run_id, query, inputs, status, result, error, tokens, operations, started_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var completedAt sql.NullTime
	if err := row.Scan(
		&r.ID, &r.RunID, &r.Query, &r.Inputs, &r.Status, &r.Result, &r.Error,
		&r.Tokens, &r.Operations, &r.StartedAt, &completedAt,
	); err != nil {
		return Run{}, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return r, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListEvents returns the events of a run in the order they happened.
func (s *SQLiteStore) ListEvents(runID string) ([]RunEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, type, operation_id, alias, operation_type, timestamp, result, error
		 FROM events WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &e.OperationID, &e.Alias, &e.OperationType, &e.Timestamp, &e.Result, &e.Error); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
