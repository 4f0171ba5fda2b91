// Package store persists query runs and their operation events.
package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store persists runs and events for historical queries.
type Store interface {
	// Init creates tables if they don't exist.
	Init() error

	// Close closes the store.
	Close() error

	// InsertRun records the start of a run.
	InsertRun(r Run) error

	// FinishRun records the outcome of a run.
	FinishRun(f RunOutcome) error

	// InsertEvent records an operation event.
	InsertEvent(e RunEvent) error

	// GetRun returns a run by ID.
	GetRun(runID string) (*Run, error)

	// ListRuns returns recent runs, newest first.
	ListRuns(limit int) ([]Run, error)

	// ListEvents returns the events of a run in the order they happened.
	ListEvents(runID string) ([]RunEvent, error)
}

// Run is a recorded query execution.
type Run struct {
	ID          int64      `json:"id" yaml:"id"`
	RunID       string     `json:"run_id" yaml:"run_id"`
	Query       string     `json:"query" yaml:"query"`
	Inputs      string     `json:"inputs" yaml:"inputs"` // JSON object
	Status      string     `json:"status" yaml:"status"`
	Result      string     `json:"result,omitempty" yaml:"result,omitempty"` // JSON object
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	Tokens      int        `json:"tokens" yaml:"tokens"`
	Operations  int        `json:"operations" yaml:"operations"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// RunOutcome is the final state of a run.
type RunOutcome struct {
	RunID       string
	Status      string
	Result      string
	Error       string
	Tokens      int
	Operations  int
	CompletedAt time.Time
}

// RunEvent is a recorded operation event.
type RunEvent struct {
	ID            int64     `json:"id" yaml:"id"`
	RunID         string    `json:"run_id" yaml:"run_id"`
	Type          string    `json:"type" yaml:"type"`
	OperationID   string    `json:"operation_id" yaml:"operation_id"`
	Alias         string    `json:"alias,omitempty" yaml:"alias,omitempty"`
	OperationType string    `json:"operation_type" yaml:"operation_type"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Result        string    `json:"result,omitempty" yaml:"result,omitempty"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}
