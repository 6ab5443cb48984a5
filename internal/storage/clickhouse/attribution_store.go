package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

const attributionColumns = "order_id, model, channel_id, weight, attributed_revenue"

// AttributionStore implements storage.AttributionStore using ClickHouse.
type AttributionStore struct {
	conn *Conn
}

// NewAttributionStore creates a new AttributionStore.
func NewAttributionStore(conn *Conn) *AttributionStore {
	return &AttributionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AttributionStore = (*AttributionStore)(nil)

// ReplaceAll loads rows into fact_attribution_staging and swaps it with fact_attribution.
func (s *AttributionStore) ReplaceAll(ctx context.Context, rows []*domain.AttributionRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}
	for _, r := range rows {
		if r == nil || !r.Model.Valid() {
			return storage.ErrInvalidInput
		}
	}

	err := s.conn.replaceTable(ctx, "fact_attribution", attributionColumns, func(batch driver.Batch) error {
		for _, r := range rows {
			if err := batch.Append(r.OrderID, string(r.Model), r.ChannelID, r.Weight, r.AttributedRevenue); err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace fact_attribution: %w", err)
	}
	return nil
}

// GetAll retrieves all rows, ordered by (order_id, model, channel_id).
func (s *AttributionStore) GetAll(ctx context.Context) ([]*domain.AttributionRow, error) {
	return s.query(ctx, `
		SELECT `+attributionColumns+`
		FROM fact_attribution
		ORDER BY order_id, model, channel_id
	`)
}

// GetByOrderID retrieves the rows of one order.
func (s *AttributionStore) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.AttributionRow, error) {
	return s.query(ctx, `
		SELECT `+attributionColumns+`
		FROM fact_attribution
		WHERE order_id = ?
		ORDER BY model, channel_id
	`, orderID)
}

func (s *AttributionStore) query(ctx context.Context, query string, args ...any) ([]*domain.AttributionRow, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fact_attribution: %w", err)
	}
	defer rows.Close()

	var result []*domain.AttributionRow
	for rows.Next() {
		var (
			r       domain.AttributionRow
			model   string
			revenue decimal.Decimal
		)
		if err := rows.Scan(&r.OrderID, &model, &r.ChannelID, &r.Weight, &revenue); err != nil {
			return nil, fmt.Errorf("scan attribution row: %w", err)
		}
		r.Model = domain.Model(model)
		r.AttributedRevenue = revenue
		result = append(result, &r)
	}

	return result, rows.Err()
}
