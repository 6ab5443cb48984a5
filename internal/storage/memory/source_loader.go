package memory

import (
	"context"
	"fmt"
	"sync"

	"ltv-attribution-lab/internal/storage"
)

// SourceLoader implements storage.SourceLoader over the in-memory stores.
// Rows are staged into fresh stores first, so a validation failure leaves the
// live stores untouched; the staged tables are then swapped in.
type SourceLoader struct {
	mu sync.Mutex

	channels  *ChannelStore
	customers *CustomerStore
	orders    *OrderStore
	touches   *TouchStore
	spend     *SpendStore
	events    *EventStore

	attribution *AttributionStore
	ltv         *LtvStore
}

// NewSourceLoader creates a loader over the given source stores.
func NewSourceLoader(channels *ChannelStore, customers *CustomerStore, orders *OrderStore,
	touches *TouchStore, spend *SpendStore, events *EventStore) *SourceLoader {
	return &SourceLoader{
		channels:  channels,
		customers: customers,
		orders:    orders,
		touches:   touches,
		spend:     spend,
		events:    events,
	}
}

// WithDerived makes ReplaceSources clear the derived tables as well.
func (l *SourceLoader) WithDerived(attribution *AttributionStore, ltv *LtvStore) *SourceLoader {
	l.attribution = attribution
	l.ltv = ltv
	return l
}

// ReplaceSources stages src, then swaps every source table.
func (l *SourceLoader) ReplaceSources(ctx context.Context, src *storage.SourceTables) error {
	if src == nil {
		return storage.ErrInvalidInput
	}

	channels := NewChannelStore()
	for _, c := range src.Channels {
		if err := channels.Insert(ctx, c); err != nil {
			return fmt.Errorf("stage dim_channel: %w", err)
		}
	}
	customers := NewCustomerStore()
	if err := customers.InsertBulk(ctx, src.Customers); err != nil {
		return fmt.Errorf("stage dim_customer: %w", err)
	}
	orders := NewOrderStore()
	if err := orders.InsertBulk(ctx, src.Orders); err != nil {
		return fmt.Errorf("stage fact_orders: %w", err)
	}
	touches := NewTouchStore()
	if err := touches.InsertBulk(ctx, src.Touches); err != nil {
		return fmt.Errorf("stage fact_touches: %w", err)
	}
	spend := NewSpendStore()
	if err := spend.InsertBulk(ctx, src.Spend); err != nil {
		return fmt.Errorf("stage fact_marketing_spend: %w", err)
	}
	events := NewEventStore()
	if err := events.InsertBulk(ctx, src.Events); err != nil {
		return fmt.Errorf("stage fact_events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels.swap(channels)
	l.customers.swap(customers)
	l.orders.swap(orders)
	l.touches.swap(touches)
	l.spend.swap(spend)
	l.events.swap(events)
	if l.attribution != nil {
		l.attribution.clear()
	}
	if l.ltv != nil {
		l.ltv.clear()
	}
	return nil
}

var _ storage.SourceLoader = (*SourceLoader)(nil)
