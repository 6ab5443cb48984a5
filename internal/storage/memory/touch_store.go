package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// TouchStore is an in-memory implementation of storage.TouchStore.
type TouchStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Touch // keyed by touch_id
}

// NewTouchStore creates a new in-memory touch store.
func NewTouchStore() *TouchStore {
	return &TouchStore{
		data: make(map[int64]*domain.Touch),
	}
}

// InsertBulk adds multiple touches atomically. Fails entire batch on any duplicate.
func (s *TouchStore) InsertBulk(_ context.Context, touches []*domain.Touch) error {
	if len(touches) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int64]struct{}, len(touches))

	for _, t := range touches {
		if t == nil || t.TouchID <= 0 || t.CustomerID <= 0 || t.ChannelID <= 0 || t.EventTS.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TouchID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TouchID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TouchID] = struct{}{}
	}

	for _, t := range touches {
		touchCopy := *t
		s.data[t.TouchID] = &touchCopy
	}

	return nil
}

// GetAll retrieves all touches, ordered by touch_id ASC.
// touch_id follows ingestion order, so equal timestamps keep their source order.
func (s *TouchStore) GetAll(_ context.Context) ([]*domain.Touch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Touch, 0, len(s.data))
	for _, t := range s.data {
		touchCopy := *t
		result = append(result, &touchCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TouchID < result[j].TouchID
	})

	return result, nil
}

// GetByCustomerID retrieves a customer's touches, ordered by (event_ts, touch_id) ASC.
func (s *TouchStore) GetByCustomerID(_ context.Context, customerID int64) ([]*domain.Touch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Touch
	for _, t := range s.data {
		if t.CustomerID == customerID {
			touchCopy := *t
			result = append(result, &touchCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EventTS.Equal(result[j].EventTS) {
			return result[i].EventTS.Before(result[j].EventTS)
		}
		return result[i].TouchID < result[j].TouchID
	})

	return result, nil
}

func (s *TouchStore) swap(from *TouchStore) {
	s.mu.Lock()
	s.data = from.data
	s.mu.Unlock()
}

var _ storage.TouchStore = (*TouchStore)(nil)
