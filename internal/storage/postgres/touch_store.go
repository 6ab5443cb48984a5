package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// TouchStore implements storage.TouchStore using PostgreSQL.
type TouchStore struct {
	pool *Pool
}

// NewTouchStore creates a new TouchStore.
func NewTouchStore(pool *Pool) *TouchStore {
	return &TouchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TouchStore = (*TouchStore)(nil)

var touchColumns = []string{"touch_id", "customer_id", "channel_id", "event_ts", "campaign", "session_id", "revenue_at_event"}

// InsertBulk adds multiple touches atomically via COPY. Fails entire batch on any duplicate.
func (s *TouchStore) InsertBulk(ctx context.Context, touches []*domain.Touch) error {
	if len(touches) == 0 {
		return nil
	}
	if err := validateTouches(touches); err != nil {
		return err
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"fact_touches"}, touchColumns, touchRows(touches))
	if err != nil {
		return copyErr("fact_touches", err)
	}
	return nil
}

func validateTouches(touches []*domain.Touch) error {
	for _, t := range touches {
		if t == nil || t.TouchID <= 0 || t.CustomerID <= 0 || t.ChannelID <= 0 || t.EventTS.IsZero() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func touchRows(touches []*domain.Touch) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(touches), func(i int) ([]any, error) {
		t := touches[i]
		return []any{t.TouchID, t.CustomerID, t.ChannelID, t.EventTS, t.Campaign, t.SessionID, numeric(t.RevenueAtEvent)}, nil
	})
}

// GetAll retrieves all touches, ordered by touch_id ASC.
func (s *TouchStore) GetAll(ctx context.Context) ([]*domain.Touch, error) {
	return s.query(ctx, `
		SELECT touch_id, customer_id, channel_id, event_ts, campaign, session_id, revenue_at_event
		FROM fact_touches
		ORDER BY touch_id
	`)
}

// GetByCustomerID retrieves a customer's touches, ordered by (event_ts, touch_id) ASC.
func (s *TouchStore) GetByCustomerID(ctx context.Context, customerID int64) ([]*domain.Touch, error) {
	return s.query(ctx, `
		SELECT touch_id, customer_id, channel_id, event_ts, campaign, session_id, revenue_at_event
		FROM fact_touches
		WHERE customer_id = $1
		ORDER BY event_ts, touch_id
	`, customerID)
}

func (s *TouchStore) query(ctx context.Context, query string, args ...any) ([]*domain.Touch, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query touches: %w", err)
	}
	defer rows.Close()

	var result []*domain.Touch
	for rows.Next() {
		var (
			t       domain.Touch
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&t.TouchID, &t.CustomerID, &t.ChannelID, &t.EventTS, &t.Campaign, &t.SessionID, &revenue); err != nil {
			return nil, fmt.Errorf("scan touch: %w", err)
		}
		if t.RevenueAtEvent, err = fromNumeric(revenue); err != nil {
			return nil, fmt.Errorf("touch revenue: %w", err)
		}
		t.EventTS = t.EventTS.UTC()
		result = append(result, &t)
	}
	return result, rows.Err()
}
