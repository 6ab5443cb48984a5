package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/storage"
)

// RunLogStore is an in-memory implementation of storage.RunLogStore.
type RunLogStore struct {
	mu   sync.RWMutex
	runs map[string]*storage.RunRecord // keyed by run_id
}

// NewRunLogStore creates a new in-memory run log store.
func NewRunLogStore() *RunLogStore {
	return &RunLogStore{
		runs: make(map[string]*storage.RunRecord),
	}
}

// Record appends a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunLogStore) Record(_ context.Context, r *storage.RunRecord) error {
	if r == nil || r.RunID == "" || r.StartedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.runs[r.RunID] = &recordCopy
	return nil
}

// GetLast returns the most recently started run.
func (s *RunLogStore) GetLast(ctx context.Context) (*storage.RunRecord, error) {
	runs, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[0], nil
}

// List returns up to limit runs, newest first.
func (s *RunLogStore) List(_ context.Context, limit int) ([]*storage.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.RunLogStore = (*RunLogStore)(nil)
