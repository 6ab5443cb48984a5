package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"ltv-attribution-lab/internal/storage"
)

// reloadTables lists every table truncated by ReplaceSources, derived tables included.
var reloadTables = []string{
	"dim_channel",
	"dim_customer",
	"fact_orders",
	"fact_touches",
	"fact_marketing_spend",
	"fact_events",
	"fact_attribution",
	"fact_ltv_cohort",
}

// SourceLoader implements storage.SourceLoader using PostgreSQL.
type SourceLoader struct {
	pool *Pool
}

// NewSourceLoader creates a new SourceLoader.
func NewSourceLoader(pool *Pool) *SourceLoader {
	return &SourceLoader{pool: pool}
}

// Compile-time interface check.
var _ storage.SourceLoader = (*SourceLoader)(nil)

// ReplaceSources truncates the source and derived tables and copies src in
// one transaction. Any failure rolls back and leaves the previous rows in place.
func (l *SourceLoader) ReplaceSources(ctx context.Context, src *storage.SourceTables) error {
	if src == nil {
		return storage.ErrInvalidInput
	}
	if err := validateSources(src); err != nil {
		return err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tables := make([]string, len(reloadTables))
	for i, t := range reloadTables {
		tables[i] = pgx.Identifier{t}.Sanitize()
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
		return fmt.Errorf("truncate sources: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    int
		src     pgx.CopyFromSource
	}{
		{"dim_channel", channelColumns, len(src.Channels), channelRows(src.Channels)},
		{"dim_customer", customerColumns, len(src.Customers), customerRows(src.Customers)},
		{"fact_orders", orderColumns, len(src.Orders), orderRows(src.Orders)},
		{"fact_touches", touchColumns, len(src.Touches), touchRows(src.Touches)},
		{"fact_marketing_spend", spendColumns, len(src.Spend), spendRows(src.Spend)},
		{"fact_events", eventColumns, len(src.Events), eventRows(src.Events)},
	}
	for _, c := range copies {
		if c.rows == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, c.src); err != nil {
			return copyErr(c.table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func validateSources(src *storage.SourceTables) error {
	for _, c := range src.Channels {
		if c == nil || c.ChannelID <= 0 || c.Name == "" {
			return storage.ErrInvalidInput
		}
	}
	if err := validateCustomers(src.Customers); err != nil {
		return err
	}
	if err := validateOrders(src.Orders); err != nil {
		return err
	}
	if err := validateTouches(src.Touches); err != nil {
		return err
	}
	if err := validateSpend(src.Spend); err != nil {
		return err
	}
	return validateEvents(src.Events)
}
