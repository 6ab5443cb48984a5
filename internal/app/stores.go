package app

import (
	"context"
	"fmt"

	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/storage"
	chstore "ltv-attribution-lab/internal/storage/clickhouse"
	"ltv-attribution-lab/internal/storage/memory"
	"ltv-attribution-lab/internal/storage/postgres"
)

// Stores bundles the sources and sinks selected by config.Sink.
type Stores struct {
	Customers storage.CustomerStore
	Orders    storage.OrderStore
	Touches   storage.TouchStore
	Channels  storage.ChannelStore
	Spend     storage.SpendStore
	Events    storage.EventStore

	// Loader replaces all source tables in one unit.
	Loader storage.SourceLoader

	Attribution storage.AttributionStore
	Ltv         storage.LtvStore
	RunLog      storage.RunLogStore

	// SinkName labels database metrics.
	SinkName string
}

// NewMemoryStores returns empty in-memory stores.
func NewMemoryStores() *Stores {
	customers := memory.NewCustomerStore()
	orders := memory.NewOrderStore()
	touches := memory.NewTouchStore()
	channels := memory.NewChannelStore()
	spend := memory.NewSpendStore()
	events := memory.NewEventStore()
	attr := memory.NewAttributionStore()
	ltv := memory.NewLtvStore()
	return &Stores{
		Customers:   customers,
		Orders:      orders,
		Touches:     touches,
		Channels:    channels,
		Spend:       spend,
		Events:      events,
		Loader:      memory.NewSourceLoader(channels, customers, orders, touches, spend, events).WithDerived(attr, ltv),
		Attribution: attr,
		Ltv:         ltv,
		RunLog:      memory.NewRunLogStore(),
		SinkName:    config.SinkMemory,
	}
}

// OpenStores connects the stores for the configured sink. PostgreSQL always
// serves the sources and run log; with the clickhouse sink the derived tables
// go to ClickHouse instead and are not cleared by a source reload. Connections
// close with the Env.
func (e *Env) OpenStores(ctx context.Context) (*Stores, error) {
	cfg := e.Config
	if cfg.Sink == config.SinkMemory {
		return NewMemoryStores(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	e.OnClose(pool.Close)

	s := &Stores{
		Customers:   postgres.NewCustomerStore(pool),
		Orders:      postgres.NewOrderStore(pool),
		Touches:     postgres.NewTouchStore(pool),
		Channels:    postgres.NewChannelStore(pool),
		Spend:       postgres.NewSpendStore(pool),
		Events:      postgres.NewEventStore(pool),
		Loader:      postgres.NewSourceLoader(pool),
		Attribution: postgres.NewAttributionStore(pool),
		Ltv:         postgres.NewLtvStore(pool),
		RunLog:      postgres.NewRunLogStore(pool),
		SinkName:    config.SinkPostgres,
	}

	if cfg.Sink == config.SinkClickHouse {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		e.OnClose(func() { _ = conn.Close() })
		s.Attribution = chstore.NewAttributionStore(conn)
		s.Ltv = chstore.NewLtvStore(conn)
		s.SinkName = config.SinkClickHouse
	}

	e.Log.Info("stores connected", "sink", s.SinkName)
	return s, nil
}
