package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

type spendKey struct {
	date      time.Time
	channelID int64
}

// SpendStore is an in-memory implementation of storage.SpendStore.
type SpendStore struct {
	mu   sync.RWMutex
	data map[spendKey]*domain.MarketingSpend // keyed by (spend_date, channel_id)
}

// NewSpendStore creates a new in-memory spend store.
func NewSpendStore() *SpendStore {
	return &SpendStore{
		data: make(map[spendKey]*domain.MarketingSpend),
	}
}

// InsertBulk adds multiple spend rows atomically. Fails entire batch on any duplicate.
func (s *SpendStore) InsertBulk(_ context.Context, spend []*domain.MarketingSpend) error {
	if len(spend) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[spendKey]struct{}, len(spend))

	for _, m := range spend {
		if m == nil || m.ChannelID <= 0 || m.SpendDate.IsZero() || m.Spend.IsNegative() {
			return storage.ErrInvalidInput
		}
		key := spendKey{date: m.SpendDate.UTC(), channelID: m.ChannelID}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, m := range spend {
		spendCopy := *m
		s.data[spendKey{date: m.SpendDate.UTC(), channelID: m.ChannelID}] = &spendCopy
	}

	return nil
}

// GetAll retrieves all spend rows, ordered by (spend_date, channel_id) ASC.
func (s *SpendStore) GetAll(_ context.Context) ([]*domain.MarketingSpend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketingSpend, 0, len(s.data))
	for _, m := range s.data {
		spendCopy := *m
		result = append(result, &spendCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SpendDate.Equal(result[j].SpendDate) {
			return result[i].SpendDate.Before(result[j].SpendDate)
		}
		return result[i].ChannelID < result[j].ChannelID
	})

	return result, nil
}

func (s *SpendStore) swap(from *SpendStore) {
	s.mu.Lock()
	s.data = from.data
	s.mu.Unlock()
}

var _ storage.SpendStore = (*SpendStore)(nil)
