package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// LtvStore implements storage.LtvStore using PostgreSQL.
type LtvStore struct {
	pool *Pool
}

// NewLtvStore creates a new LtvStore.
func NewLtvStore(pool *Pool) *LtvStore {
	return &LtvStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LtvStore = (*LtvStore)(nil)

var ltvColumns = []string{"cohort_month", "customer_id", "horizon_days", "revenue"}

// ReplaceAll runs DELETE + COPY in one transaction.
// A duplicate (horizon_days, cohort_month, customer_id) aborts with ErrDuplicateKey.
func (s *LtvStore) ReplaceAll(ctx context.Context, rows []*domain.LtvRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}
	for _, r := range rows {
		if r == nil || r.HorizonDays <= 0 || r.CohortMonth.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	_, err := s.pool.replaceTable(ctx, "fact_ltv_cohort", ltvColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.CohortMonth, r.CustomerID, int32(r.HorizonDays), numeric(r.Revenue)}, nil
		}),
	)
	return err
}

// GetAll retrieves all rows, ordered by (horizon_days, cohort_month, customer_id).
func (s *LtvStore) GetAll(ctx context.Context) ([]*domain.LtvRow, error) {
	return s.query(ctx, `
		SELECT cohort_month, customer_id, horizon_days, revenue
		FROM fact_ltv_cohort
		ORDER BY horizon_days, cohort_month, customer_id
	`)
}

// GetByHorizon retrieves the rows of one horizon, ordered by (cohort_month, customer_id).
func (s *LtvStore) GetByHorizon(ctx context.Context, horizonDays int) ([]*domain.LtvRow, error) {
	return s.query(ctx, `
		SELECT cohort_month, customer_id, horizon_days, revenue
		FROM fact_ltv_cohort
		WHERE horizon_days = $1
		ORDER BY cohort_month, customer_id
	`, horizonDays)
}

func (s *LtvStore) query(ctx context.Context, query string, args ...any) ([]*domain.LtvRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fact_ltv_cohort: %w", err)
	}
	defer rows.Close()

	var result []*domain.LtvRow
	for rows.Next() {
		var (
			r       domain.LtvRow
			horizon int32
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&r.CohortMonth, &r.CustomerID, &horizon, &revenue); err != nil {
			return nil, fmt.Errorf("scan ltv row: %w", err)
		}
		if r.Revenue, err = fromNumeric(revenue); err != nil {
			return nil, fmt.Errorf("ltv revenue: %w", err)
		}
		r.HorizonDays = int(horizon)
		r.CohortMonth = r.CohortMonth.UTC()
		result = append(result, &r)
	}
	return result, rows.Err()
}
