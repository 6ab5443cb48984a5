package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// LtvStore is an in-memory implementation of storage.LtvStore.
type LtvStore struct {
	mu   sync.RWMutex
	rows []*domain.LtvRow
}

// NewLtvStore creates a new in-memory LTV store.
func NewLtvStore() *LtvStore {
	return &LtvStore{}
}

// ReplaceAll validates every row, then swaps the whole table under the write lock.
// Fails on duplicate (cohort_month, customer_id, horizon_days).
func (s *LtvStore) ReplaceAll(_ context.Context, rows []*domain.LtvRow) error {
	if len(rows) == 0 {
		return storage.ErrInvalidInput
	}

	type key struct {
		customerID int64
		horizon    int
		cohort     int64
	}
	seen := make(map[key]struct{}, len(rows))

	next := make([]*domain.LtvRow, len(rows))
	for i, r := range rows {
		if r == nil || r.CustomerID <= 0 || r.HorizonDays <= 0 || r.CohortMonth.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{customerID: r.CustomerID, horizon: r.HorizonDays, cohort: r.CohortMonth.Unix()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		rowCopy := *r
		next[i] = &rowCopy
	}

	s.mu.Lock()
	s.rows = next
	s.mu.Unlock()
	return nil
}

// GetAll retrieves all rows, ordered by (horizon_days, cohort_month, customer_id).
func (s *LtvStore) GetAll(_ context.Context) ([]*domain.LtvRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.LtvRow, 0, len(s.rows))
	for _, r := range s.rows {
		rowCopy := *r
		result = append(result, &rowCopy)
	}

	sortLtv(result)
	return result, nil
}

// GetByHorizon retrieves the rows of one horizon, ordered by (cohort_month, customer_id).
func (s *LtvStore) GetByHorizon(_ context.Context, horizonDays int) ([]*domain.LtvRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LtvRow
	for _, r := range s.rows {
		if r.HorizonDays == horizonDays {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sortLtv(result)
	return result, nil
}

func sortLtv(rows []*domain.LtvRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].HorizonDays != rows[j].HorizonDays {
			return rows[i].HorizonDays < rows[j].HorizonDays
		}
		if !rows[i].CohortMonth.Equal(rows[j].CohortMonth) {
			return rows[i].CohortMonth.Before(rows[j].CohortMonth)
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
}

func (s *LtvStore) clear() {
	s.mu.Lock()
	s.rows = nil
	s.mu.Unlock()
}

var _ storage.LtvStore = (*LtvStore)(nil)
