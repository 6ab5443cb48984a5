package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// replaceTable deletes every row of table and copies src into it in one
// transaction. Any failure rolls back and leaves the previous rows in place.
func (p *Pool) replaceTable(ctx context.Context, table string, columns []string, src pgx.CopyFromSource) (int64, error) {
	tx, err := p.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()); err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return 0, copyErr(table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return n, nil
}
