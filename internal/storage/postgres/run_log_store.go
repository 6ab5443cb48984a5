package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ltv-attribution-lab/internal/storage"
)

// RunLogStore is a PostgreSQL implementation of storage.RunLogStore
// backed by the pipeline_runs table.
type RunLogStore struct {
	pool *Pool
}

// NewRunLogStore creates a new PostgreSQL run log store.
func NewRunLogStore(pool *Pool) *RunLogStore {
	return &RunLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunLogStore = (*RunLogStore)(nil)

// Record appends a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunLogStore) Record(ctx context.Context, r *storage.RunRecord) error {
	if r == nil || r.RunID == "" || r.StartedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, params_hash, started_at, finished_at, status,
			attribution_rows, ltv_rows, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.RunID, r.ParamsHash, r.StartedAt, r.FinishedAt, r.Status,
		r.AttributionRows, r.LtvRows, r.Error)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

// GetLast returns the most recently started run.
func (s *RunLogStore) GetLast(ctx context.Context) (*storage.RunRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, params_hash, started_at, finished_at, status,
		       attribution_rows, ltv_rows, error
		FROM pipeline_runs
		ORDER BY started_at DESC, run_id
		LIMIT 1
	`)

	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last run: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first.
func (s *RunLogStore) List(ctx context.Context, limit int) ([]*storage.RunRecord, error) {
	query := `
		SELECT run_id, params_hash, started_at, finished_at, status,
		       attribution_rows, ltv_rows, error
		FROM pipeline_runs
		ORDER BY started_at DESC, run_id
	`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var result []*storage.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRun(row pgx.Row) (*storage.RunRecord, error) {
	var r storage.RunRecord
	err := row.Scan(&r.RunID, &r.ParamsHash, &r.StartedAt, &r.FinishedAt, &r.Status,
		&r.AttributionRows, &r.LtvRows, &r.Error)
	if err != nil {
		return nil, err
	}
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	return &r, nil
}
