package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

var orderColumns = []string{"order_id", "customer_id", "order_ts", "amount"}

// InsertBulk adds multiple orders atomically via COPY. Fails entire batch on any duplicate.
func (s *OrderStore) InsertBulk(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	if err := validateOrders(orders); err != nil {
		return err
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"fact_orders"}, orderColumns, orderRows(orders))
	if err != nil {
		return copyErr("fact_orders", err)
	}
	return nil
}

func validateOrders(orders []*domain.Order) error {
	for _, o := range orders {
		if o == nil || o.OrderID <= 0 || o.CustomerID <= 0 || o.OrderTS.IsZero() || o.Amount.IsNegative() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func orderRows(orders []*domain.Order) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(orders), func(i int) ([]any, error) {
		o := orders[i]
		return []any{o.OrderID, o.CustomerID, o.OrderTS, numeric(o.Amount)}, nil
	})
}

// GetAll retrieves all orders, ordered by order_id ASC.
func (s *OrderStore) GetAll(ctx context.Context) ([]*domain.Order, error) {
	return s.query(ctx, `
		SELECT order_id, customer_id, order_ts, amount
		FROM fact_orders
		ORDER BY order_id
	`)
}

// GetByCustomerID retrieves a customer's orders, ordered by order_ts ASC.
func (s *OrderStore) GetByCustomerID(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	return s.query(ctx, `
		SELECT order_id, customer_id, order_ts, amount
		FROM fact_orders
		WHERE customer_id = $1
		ORDER BY order_ts, order_id
	`, customerID)
}

func (s *OrderStore) query(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			amount pgtype.Numeric
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.OrderTS, &amount); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.Amount, err = fromNumeric(amount); err != nil {
			return nil, fmt.Errorf("order %d amount: %w", o.OrderID, err)
		}
		o.OrderTS = o.OrderTS.UTC()
		result = append(result, &o)
	}
	return result, rows.Err()
}
