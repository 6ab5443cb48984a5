package storage

import (
	"context"
	"time"
)

// Run statuses recorded in the run log.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	RunID           string // deterministic hash of start time and parameters
	ParamsHash      string // hash of the model parameters only
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          string
	AttributionRows int
	LtvRows         int
	Error           string // empty unless Status is failed
}

// RunLogStore persists pipeline run history.
type RunLogStore interface {
	// Record appends a run. Returns ErrDuplicateKey if run_id exists.
	Record(ctx context.Context, r *RunRecord) error

	// GetLast returns the most recently started run.
	// Returns ErrNotFound if no run has been recorded yet.
	GetLast(ctx context.Context) (*RunRecord, error)

	// List returns up to limit runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*RunRecord, error)
}
