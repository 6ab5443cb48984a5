package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// AttributionStore is an in-memory implementation of storage.AttributionStore.
type AttributionStore struct {
	mu   sync.RWMutex
	rows []*domain.AttributionRow
}

// NewAttributionStore creates a new in-memory attribution store.
func NewAttributionStore() *AttributionStore {
	return &AttributionStore{}
}

// ReplaceAll validates every row, then swaps the whole table under the write lock.
func (s *AttributionStore) ReplaceAll(_ context.Context, rows []*domain.AttributionRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}

	next := make([]*domain.AttributionRow, len(rows))
	for i, r := range rows {
		if r == nil || r.OrderID <= 0 || r.ChannelID <= 0 || !r.Model.Valid() {
			return storage.ErrInvalidInput
		}
		rowCopy := *r
		next[i] = &rowCopy
	}

	s.mu.Lock()
	s.rows = next
	s.mu.Unlock()
	return nil
}

// GetAll retrieves all rows, ordered by (order_id, model, channel_id).
func (s *AttributionStore) GetAll(_ context.Context) ([]*domain.AttributionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AttributionRow, 0, len(s.rows))
	for _, r := range s.rows {
		rowCopy := *r
		result = append(result, &rowCopy)
	}

	sortAttribution(result)
	return result, nil
}

// GetByOrderID retrieves the rows of one order.
func (s *AttributionStore) GetByOrderID(_ context.Context, orderID int64) ([]*domain.AttributionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AttributionRow
	for _, r := range s.rows {
		if r.OrderID == orderID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sortAttribution(result)
	return result, nil
}

// sortAttribution orders rows by (order_id, model, channel_id). The sort is
// stable so duplicate channels within a model keep their computed order.
func sortAttribution(rows []*domain.AttributionRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OrderID != rows[j].OrderID {
			return rows[i].OrderID < rows[j].OrderID
		}
		if rows[i].Model != rows[j].Model {
			return rows[i].Model < rows[j].Model
		}
		return rows[i].ChannelID < rows[j].ChannelID
	})
}

func (s *AttributionStore) clear() {
	s.mu.Lock()
	s.rows = nil
	s.mu.Unlock()
}

var _ storage.AttributionStore = (*AttributionStore)(nil)
