package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// SpendStore implements storage.SpendStore using PostgreSQL.
type SpendStore struct {
	pool *Pool
}

// NewSpendStore creates a new SpendStore.
func NewSpendStore(pool *Pool) *SpendStore {
	return &SpendStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SpendStore = (*SpendStore)(nil)

// InsertBulk adds multiple spend rows atomically via COPY. Fails entire batch on any duplicate.
func (s *SpendStore) InsertBulk(ctx context.Context, spend []*domain.MarketingSpend) error {
	if len(spend) == 0 {
		return nil
	}
	if err := validateSpend(spend); err != nil {
		return err
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"fact_marketing_spend"}, spendColumns, spendRows(spend))
	if err != nil {
		return copyErr("fact_marketing_spend", err)
	}
	return nil
}

var spendColumns = []string{"spend_date", "channel_id", "spend"}

func validateSpend(spend []*domain.MarketingSpend) error {
	for _, m := range spend {
		if m == nil || m.ChannelID <= 0 || m.SpendDate.IsZero() || m.Spend.IsNegative() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func spendRows(spend []*domain.MarketingSpend) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(spend), func(i int) ([]any, error) {
		m := spend[i]
		return []any{m.SpendDate, m.ChannelID, numeric(m.Spend)}, nil
	})
}

// GetAll retrieves all spend rows, ordered by (spend_date, channel_id) ASC.
func (s *SpendStore) GetAll(ctx context.Context) ([]*domain.MarketingSpend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT spend_date, channel_id, spend
		FROM fact_marketing_spend
		ORDER BY spend_date, channel_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query spend: %w", err)
	}
	defer rows.Close()

	var result []*domain.MarketingSpend
	for rows.Next() {
		var (
			m     domain.MarketingSpend
			spent pgtype.Numeric
		)
		if err := rows.Scan(&m.SpendDate, &m.ChannelID, &spent); err != nil {
			return nil, fmt.Errorf("scan spend: %w", err)
		}
		if m.Spend, err = fromNumeric(spent); err != nil {
			return nil, fmt.Errorf("spend amount: %w", err)
		}
		m.SpendDate = m.SpendDate.UTC()
		result = append(result, &m)
	}
	return result, rows.Err()
}
