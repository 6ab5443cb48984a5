package clickhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

const ltvColumns = "cohort_month, customer_id, horizon_days, revenue"

// LtvStore implements storage.LtvStore using ClickHouse.
type LtvStore struct {
	conn *Conn
}

// NewLtvStore creates a new LtvStore.
func NewLtvStore(conn *Conn) *LtvStore {
	return &LtvStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LtvStore = (*LtvStore)(nil)

// ReplaceAll loads rows into fact_ltv_cohort_staging and swaps it with fact_ltv_cohort.
func (s *LtvStore) ReplaceAll(ctx context.Context, rows []*domain.LtvRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}
	for _, r := range rows {
		// horizon_days is UInt16
		if r == nil || r.HorizonDays <= 0 || r.HorizonDays > math.MaxUint16 {
			return storage.ErrInvalidInput
		}
	}

	err := s.conn.replaceTable(ctx, "fact_ltv_cohort", ltvColumns, func(batch driver.Batch) error {
		for _, r := range rows {
			if err := batch.Append(r.CohortMonth, r.CustomerID, uint16(r.HorizonDays), r.Revenue); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace fact_ltv_cohort: %w", err)
	}
	return nil
}

// GetAll retrieves all rows, ordered by (horizon_days, cohort_month, customer_id).
func (s *LtvStore) GetAll(ctx context.Context) ([]*domain.LtvRow, error) {
	return s.query(ctx, `
		SELECT `+ltvColumns+`
		FROM fact_ltv_cohort
		ORDER BY horizon_days, cohort_month, customer_id
	`)
}

// GetByHorizon retrieves the rows of one horizon, ordered by (cohort_month, customer_id).
func (s *LtvStore) GetByHorizon(ctx context.Context, horizonDays int) ([]*domain.LtvRow, error) {
	if horizonDays <= 0 || horizonDays > math.MaxUint16 {
		return nil, nil
	}
	return s.query(ctx, `
		SELECT `+ltvColumns+`
		FROM fact_ltv_cohort
		WHERE horizon_days = ?
		ORDER BY cohort_month, customer_id
	`, uint16(horizonDays))
}

func (s *LtvStore) query(ctx context.Context, query string, args ...any) ([]*domain.LtvRow, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fact_ltv_cohort: %w", err)
	}
	defer rows.Close()

	var result []*domain.LtvRow
	for rows.Next() {
		var (
			cohort  time.Time
			id      int64
			horizon uint16
			revenue decimal.Decimal
		)
		if err := rows.Scan(&cohort, &id, &horizon, &revenue); err != nil {
			return nil, fmt.Errorf("scan ltv row: %w", err)
		}
		result = append(result, &domain.LtvRow{
			CohortMonth: cohort.UTC(),
			CustomerID:  id,
			HorizonDays: int(horizon),
			Revenue:     revenue,
		})
	}

	return result, rows.Err()
}
