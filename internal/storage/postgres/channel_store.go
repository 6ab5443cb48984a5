package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// ChannelStore implements storage.ChannelStore using PostgreSQL.
type ChannelStore struct {
	pool *Pool
}

// NewChannelStore creates a new ChannelStore.
func NewChannelStore(pool *Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChannelStore = (*ChannelStore)(nil)

var channelColumns = []string{"channel_id", "channel_name", "channel_group"}

// Insert adds a new channel. Returns ErrDuplicateKey if channel_id or name exists.
func (s *ChannelStore) Insert(ctx context.Context, c *domain.Channel) error {
	if c == nil || c.ChannelID <= 0 || c.Name == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO dim_channel (channel_id, channel_name, channel_group)
		VALUES ($1, $2, $3)
	`, c.ChannelID, c.Name, c.Group)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// GetAll retrieves all channels, ordered by channel_id ASC.
func (s *ChannelStore) GetAll(ctx context.Context) ([]*domain.Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel_id, channel_name, channel_group
		FROM dim_channel
		ORDER BY channel_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var result []*domain.Channel
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ChannelID, &c.Name, &c.Group); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// GetByName retrieves a channel by name. Returns ErrNotFound if not exists.
func (s *ChannelStore) GetByName(ctx context.Context, name string) (*domain.Channel, error) {
	var c domain.Channel
	err := s.pool.QueryRow(ctx, `
		SELECT channel_id, channel_name, channel_group
		FROM dim_channel
		WHERE channel_name = $1
	`, name).Scan(&c.ChannelID, &c.Name, &c.Group)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get channel by name: %w", err)
	}
	return &c, nil
}

func channelRows(channels []*domain.Channel) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(channels), func(i int) ([]any, error) {
		c := channels[i]
		return []any{c.ChannelID, c.Name, c.Group}, nil
	})
}
