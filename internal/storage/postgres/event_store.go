package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

var eventColumns = []string{"event_id", "customer_id", "channel_id", "event_ts", "event_type", "product_id", "order_id"}

// InsertBulk adds events using COPY. Fails the whole batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"fact_events"}, eventColumns, eventRows(events))
	if err != nil {
		return copyErr("fact_events", err)
	}
	return nil
}

// GetAll retrieves all events, ordered by event_id ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, customer_id, channel_id, event_ts, event_type, product_id, order_id
		FROM fact_events
		ORDER BY event_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []*domain.Event
	for rows.Next() {
		var (
			e         domain.Event
			eventType string
		)
		if err := rows.Scan(&e.EventID, &e.CustomerID, &e.ChannelID, &e.EventTS, &eventType, &e.ProductID, &e.OrderID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		e.EventTS = e.EventTS.UTC()
		result = append(result, &e)
	}
	return result, rows.Err()
}

func validateEvents(events []*domain.Event) error {
	for _, e := range events {
		if e == nil || e.EventID <= 0 || e.CustomerID <= 0 || e.ChannelID <= 0 || e.EventTS.IsZero() || !e.EventType.Valid() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func eventRows(events []*domain.Event) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
		e := events[i]
		return []any{e.EventID, e.CustomerID, e.ChannelID, e.EventTS, string(e.EventType), e.ProductID, e.OrderID}, nil
	})
}
