package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// CustomerStore is an in-memory implementation of storage.CustomerStore.
type CustomerStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Customer // keyed by customer_id
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		data: make(map[int64]*domain.Customer),
	}
}

// InsertBulk adds multiple customers atomically. Fails entire batch on any duplicate.
func (s *CustomerStore) InsertBulk(_ context.Context, customers []*domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[int64]struct{}, len(customers))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, c := range customers {
		if c == nil || c.CustomerID <= 0 || c.SignupDate.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[c.CustomerID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.CustomerID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.CustomerID] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range customers {
		customerCopy := *c
		s.data[c.CustomerID] = &customerCopy
	}

	return nil
}

// GetAll retrieves all customers, ordered by customer_id ASC.
func (s *CustomerStore) GetAll(_ context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Customer, 0, len(s.data))
	for _, c := range s.data {
		customerCopy := *c
		result = append(result, &customerCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CustomerID < result[j].CustomerID
	})

	return result, nil
}

// GetByID retrieves a customer by its ID. Returns ErrNotFound if not exists.
func (s *CustomerStore) GetByID(_ context.Context, customerID int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[customerID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	customerCopy := *c
	return &customerCopy, nil
}

// Verify interface compliance at compile time.
func (s *CustomerStore) swap(from *CustomerStore) {
	s.mu.Lock()
	s.data = from.data
	s.mu.Unlock()
}

var _ storage.CustomerStore = (*CustomerStore)(nil)
