package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Order // keyed by order_id
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data: make(map[int64]*domain.Order),
	}
}

// InsertBulk adds multiple orders atomically. Fails entire batch on any duplicate.
func (s *OrderStore) InsertBulk(_ context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int64]struct{}, len(orders))

	for _, o := range orders {
		if o == nil || o.OrderID <= 0 || o.CustomerID <= 0 || o.OrderTS.IsZero() || o.Amount.IsNegative() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[o.OrderID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[o.OrderID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[o.OrderID] = struct{}{}
	}

	for _, o := range orders {
		orderCopy := *o
		s.data[o.OrderID] = &orderCopy
	}

	return nil
}

// GetAll retrieves all orders, ordered by order_id ASC.
func (s *OrderStore) GetAll(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Order, 0, len(s.data))
	for _, o := range s.data {
		orderCopy := *o
		result = append(result, &orderCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OrderID < result[j].OrderID
	})

	return result, nil
}

// GetByCustomerID retrieves a customer's orders, ordered by order_ts ASC.
func (s *OrderStore) GetByCustomerID(_ context.Context, customerID int64) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.data {
		if o.CustomerID == customerID {
			orderCopy := *o
			result = append(result, &orderCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderTS.Equal(result[j].OrderTS) {
			return result[i].OrderTS.Before(result[j].OrderTS)
		}
		return result[i].OrderID < result[j].OrderID
	})

	return result, nil
}

func (s *OrderStore) swap(from *OrderStore) {
	s.mu.Lock()
	s.data = from.data
	s.mu.Unlock()
}

var _ storage.OrderStore = (*OrderStore)(nil)
