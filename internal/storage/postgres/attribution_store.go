package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// AttributionStore implements storage.AttributionStore using PostgreSQL.
type AttributionStore struct {
	pool *Pool
}

// NewAttributionStore creates a new AttributionStore.
func NewAttributionStore(pool *Pool) *AttributionStore {
	return &AttributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AttributionStore = (*AttributionStore)(nil)

var attributionColumns = []string{"order_id", "model", "channel_id", "weight", "attributed_revenue"}

// ReplaceAll runs DELETE + COPY in one transaction.
func (s *AttributionStore) ReplaceAll(ctx context.Context, rows []*domain.AttributionRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}
	for _, r := range rows {
		if r == nil || !r.Model.Valid() {
			return storage.ErrInvalidInput
		}
	}

	_, err := s.pool.replaceTable(ctx, "fact_attribution", attributionColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.OrderID, string(r.Model), r.ChannelID, r.Weight, numeric(r.AttributedRevenue)}, nil
		}),
	)
	return err
}

// GetAll retrieves all rows, ordered by (order_id, model, channel_id).
func (s *AttributionStore) GetAll(ctx context.Context) ([]*domain.AttributionRow, error) {
	return s.query(ctx, `
		SELECT order_id, model, channel_id, weight, attributed_revenue
		FROM fact_attribution
		ORDER BY order_id, model, channel_id
	`)
}

// GetByOrderID retrieves the rows of one order.
func (s *AttributionStore) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.AttributionRow, error) {
	return s.query(ctx, `
		SELECT order_id, model, channel_id, weight, attributed_revenue
		FROM fact_attribution
		WHERE order_id = $1
		ORDER BY model, channel_id
	`, orderID)
}

func (s *AttributionStore) query(ctx context.Context, query string, args ...any) ([]*domain.AttributionRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fact_attribution: %w", err)
	}
	defer rows.Close()

	var result []*domain.AttributionRow
	for rows.Next() {
		var (
			r       domain.AttributionRow
			model   string
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&r.OrderID, &model, &r.ChannelID, &r.Weight, &revenue); err != nil {
			return nil, fmt.Errorf("scan attribution row: %w", err)
		}
		if r.AttributedRevenue, err = fromNumeric(revenue); err != nil {
			return nil, fmt.Errorf("attribution revenue: %w", err)
		}
		r.Model = domain.Model(model)
		result = append(result, &r)
	}
	return result, rows.Err()
}
