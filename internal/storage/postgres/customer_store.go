package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// CustomerStore implements storage.CustomerStore using PostgreSQL.
type CustomerStore struct {
	pool *Pool
}

// NewCustomerStore creates a new CustomerStore.
func NewCustomerStore(pool *Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CustomerStore = (*CustomerStore)(nil)

var customerColumns = []string{"customer_id", "external_id", "signup_date", "country"}

// InsertBulk adds multiple customers atomically via COPY. Fails entire batch on any duplicate.
func (s *CustomerStore) InsertBulk(ctx context.Context, customers []*domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	if err := validateCustomers(customers); err != nil {
		return err
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"dim_customer"}, customerColumns, customerRows(customers))
	if err != nil {
		return copyErr("dim_customer", err)
	}
	return nil
}

func validateCustomers(customers []*domain.Customer) error {
	for _, c := range customers {
		if c == nil || c.CustomerID <= 0 || c.SignupDate.IsZero() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func customerRows(customers []*domain.Customer) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(customers), func(i int) ([]any, error) {
		c := customers[i]
		return []any{c.CustomerID, c.ExternalID, c.SignupDate, c.Country}, nil
	})
}

// GetAll retrieves all customers, ordered by customer_id ASC.
func (s *CustomerStore) GetAll(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, external_id, signup_date, country
		FROM dim_customer
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var result []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetByID retrieves a customer by its ID. Returns ErrNotFound if not exists.
func (s *CustomerStore) GetByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT customer_id, external_id, signup_date, country
		FROM dim_customer
		WHERE customer_id = $1
	`, customerID)

	c, err := scanCustomer(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return c, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.CustomerID, &c.ExternalID, &c.SignupDate, &c.Country); err != nil {
		return nil, err
	}
	c.SignupDate = c.SignupDate.UTC()
	return &c, nil
}
