package storage

import (
	"context"

	"ltv-attribution-lab/internal/domain"
)

// CustomerStore provides access to dim_customer storage.
type CustomerStore interface {
	// InsertBulk adds multiple customers atomically. Fails entire batch on any duplicate customer_id.
	InsertBulk(ctx context.Context, customers []*domain.Customer) error

	// GetAll retrieves all customers, ordered by customer_id ASC.
	GetAll(ctx context.Context) ([]*domain.Customer, error)

	// GetByID retrieves a customer by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, customerID int64) (*domain.Customer, error)
}

// OrderStore provides access to fact_orders storage.
type OrderStore interface {
	// InsertBulk adds multiple orders atomically. Fails entire batch on any duplicate order_id.
	InsertBulk(ctx context.Context, orders []*domain.Order) error

	// GetAll retrieves all orders, ordered by order_id ASC.
	GetAll(ctx context.Context) ([]*domain.Order, error)

	// GetByCustomerID retrieves a customer's orders, ordered by order_ts ASC.
	GetByCustomerID(ctx context.Context, customerID int64) ([]*domain.Order, error)
}

// TouchStore provides access to fact_touches storage.
type TouchStore interface {
	// InsertBulk adds multiple touches atomically. Fails entire batch on any duplicate touch_id.
	InsertBulk(ctx context.Context, touches []*domain.Touch) error

	// GetAll retrieves all touches, ordered by touch_id ASC.
	GetAll(ctx context.Context) ([]*domain.Touch, error)

	// GetByCustomerID retrieves a customer's touches, ordered by event_ts ASC.
	GetByCustomerID(ctx context.Context, customerID int64) ([]*domain.Touch, error)
}

// ChannelStore provides access to dim_channel storage.
type ChannelStore interface {
	// Insert adds a new channel. Returns ErrDuplicateKey if channel_id or name exists.
	Insert(ctx context.Context, c *domain.Channel) error

	// GetAll retrieves all channels, ordered by channel_id ASC.
	GetAll(ctx context.Context) ([]*domain.Channel, error)

	// GetByName retrieves a channel by name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.Channel, error)
}

// SpendStore provides access to fact_marketing_spend storage.
type SpendStore interface {
	// InsertBulk adds multiple spend rows atomically. Fails entire batch on duplicate (spend_date, channel_id).
	InsertBulk(ctx context.Context, spend []*domain.MarketingSpend) error

	// GetAll retrieves all spend rows, ordered by (spend_date, channel_id) ASC.
	GetAll(ctx context.Context) ([]*domain.MarketingSpend, error)
}

// EventStore provides access to fact_events storage.
type EventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetAll retrieves all events, ordered by event_id ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)
}

// SourceTables is a complete set of source rows with surrogate ids assigned.
type SourceTables struct {
	Channels  []*domain.Channel
	Customers []*domain.Customer
	Orders    []*domain.Order
	Touches   []*domain.Touch
	Spend     []*domain.MarketingSpend
	Events    []*domain.Event
}

// SourceLoader reloads the source tables from scratch.
type SourceLoader interface {
	// ReplaceSources clears every source table and loads src as one atomic unit.
	// Derived tables kept by the same backend are cleared too, since their ids
	// refer to the previous load. On failure every table keeps its previous rows.
	ReplaceSources(ctx context.Context, src *SourceTables) error
}

// AttributionStore provides access to fact_attribution storage.
// The table is derived: every run replaces it wholesale.
type AttributionStore interface {
	// ReplaceAll deletes every row and inserts rows as one atomic unit.
	// On failure the previous contents remain. Returns ErrInvalidInput for an empty slice.
	ReplaceAll(ctx context.Context, rows []*domain.AttributionRow) error

	// GetAll retrieves all rows, ordered by (order_id, model, channel_id).
	GetAll(ctx context.Context) ([]*domain.AttributionRow, error)

	// GetByOrderID retrieves the rows of one order.
	GetByOrderID(ctx context.Context, orderID int64) ([]*domain.AttributionRow, error)
}

// LtvStore provides access to fact_ltv_cohort storage.
// The table is derived: every run replaces it wholesale.
type LtvStore interface {
	// ReplaceAll deletes every row and inserts rows as one atomic unit.
	// On failure the previous contents remain. Returns ErrInvalidInput for an empty slice.
	ReplaceAll(ctx context.Context, rows []*domain.LtvRow) error

	// GetAll retrieves all rows, ordered by (horizon_days, cohort_month, customer_id).
	GetAll(ctx context.Context) ([]*domain.LtvRow, error)

	// GetByHorizon retrieves the rows of one horizon, ordered by (cohort_month, customer_id).
	GetByHorizon(ctx context.Context, horizonDays int) ([]*domain.LtvRow, error)
}
