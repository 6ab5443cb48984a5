package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Event // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[int64]*domain.Event),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int64]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID <= 0 || e.CustomerID <= 0 || e.ChannelID <= 0 || e.EventTS.IsZero() || !e.EventType.Valid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = struct{}{}
	}

	for _, e := range events {
		s.data[e.EventID] = copyEvent(e)
	}
	return nil
}

// GetAll retrieves all events, ordered by event_id ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, copyEvent(e))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EventID < result[j].EventID
	})
	return result, nil
}

func (s *EventStore) swap(from *EventStore) {
	s.mu.Lock()
	s.data = from.data
	s.mu.Unlock()
}

// copyEvent copies e including its optional references.
func copyEvent(e *domain.Event) *domain.Event {
	c := *e
	if e.ProductID != nil {
		v := *e.ProductID
		c.ProductID = &v
	}
	if e.OrderID != nil {
		v := *e.OrderID
		c.OrderID = &v
	}
	return &c
}

var _ storage.EventStore = (*EventStore)(nil)
