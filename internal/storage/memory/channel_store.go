package memory

import (
	"context"
	"sort"
	"sync"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// ChannelStore is an in-memory implementation of storage.ChannelStore.
type ChannelStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.Channel // keyed by channel_id
	byName map[string]int64
}

// NewChannelStore creates a new in-memory channel store.
func NewChannelStore() *ChannelStore {
	return &ChannelStore{
		data:   make(map[int64]*domain.Channel),
		byName: make(map[string]int64),
	}
}

// Insert adds a new channel. Returns ErrDuplicateKey if channel_id or name exists.
func (s *ChannelStore) Insert(_ context.Context, c *domain.Channel) error {
	if c == nil || c.ChannelID <= 0 || c.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ChannelID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byName[c.Name]; exists {
		return storage.ErrDuplicateKey
	}

	channelCopy := *c
	s.data[c.ChannelID] = &channelCopy
	s.byName[c.Name] = c.ChannelID
	return nil
}

// GetAll retrieves all channels, ordered by channel_id ASC.
func (s *ChannelStore) GetAll(_ context.Context) ([]*domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Channel, 0, len(s.data))
	for _, c := range s.data {
		channelCopy := *c
		result = append(result, &channelCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChannelID < result[j].ChannelID
	})

	return result, nil
}

// GetByName retrieves a channel by name. Returns ErrNotFound if not exists.
func (s *ChannelStore) GetByName(_ context.Context, name string) (*domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byName[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	channelCopy := *s.data[id]
	return &channelCopy, nil
}

func (s *ChannelStore) swap(from *ChannelStore) {
	s.mu.Lock()
	s.data, s.byName = from.data, from.byName
	s.mu.Unlock()
}

var _ storage.ChannelStore = (*ChannelStore)(nil)
