package ingestion

import (
	"fmt"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// Resolved holds a Dataset mapped onto domain rows with surrogate ids.
type Resolved struct {
	Channels  []*domain.Channel
	Customers []*domain.Customer
	Orders    []*domain.Order
	Touches   []*domain.Touch
	Spend     []*domain.MarketingSpend
	Events    []*domain.Event
}

// Tables returns the resolved rows as one source load.
func (r *Resolved) Tables() *storage.SourceTables {
	return &storage.SourceTables{
		Channels:  r.Channels,
		Customers: r.Customers,
		Orders:    r.Orders,
		Touches:   r.Touches,
		Spend:     r.Spend,
		Events:    r.Events,
	}
}

// Resolve assigns surrogate ids in file order and replaces external ids and
// channel names with them. Any unknown or duplicate natural key is an
// ErrInvalidInput naming the file and line.
func Resolve(ds *Dataset) (*Resolved, error) {
	if ds == nil {
		return nil, storage.ErrInvalidInput
	}
	out := &Resolved{
		Channels:  make([]*domain.Channel, 0, len(ds.Channels)),
		Customers: make([]*domain.Customer, 0, len(ds.Customers)),
		Orders:    make([]*domain.Order, 0, len(ds.Orders)),
		Touches:   make([]*domain.Touch, 0, len(ds.Touches)),
		Spend:     make([]*domain.MarketingSpend, 0, len(ds.Spend)),
		Events:    make([]*domain.Event, 0, len(ds.Events)),
	}

	channelIDs := make(map[string]int64, len(ds.Channels))
	for i, c := range ds.Channels {
		if _, dup := channelIDs[c.Name]; dup {
			return nil, invalid(ChannelsFile, line(c.Line, i), "duplicate channel %q", c.Name)
		}
		id := int64(i + 1)
		channelIDs[c.Name] = id
		out.Channels = append(out.Channels, &domain.Channel{ChannelID: id, Name: c.Name, Group: c.Group})
	}

	customerIDs := make(map[string]int64, len(ds.Customers))
	for i, c := range ds.Customers {
		if _, dup := customerIDs[c.ExternalID]; dup {
			return nil, invalid(CustomersFile, line(c.Line, i), "duplicate external_id %q", c.ExternalID)
		}
		id := int64(i + 1)
		customerIDs[c.ExternalID] = id
		out.Customers = append(out.Customers, &domain.Customer{
			CustomerID: id,
			ExternalID: c.ExternalID,
			SignupDate: c.SignupDate,
			Country:    c.Country,
		})
	}

	for i, t := range ds.Touches {
		customerID, ok := customerIDs[t.ExternalID]
		if !ok {
			return nil, invalid(TouchesFile, line(t.Line, i), "unknown external_id %q", t.ExternalID)
		}
		channelID, ok := channelIDs[t.ChannelName]
		if !ok {
			return nil, invalid(TouchesFile, line(t.Line, i), "unknown channel %q", t.ChannelName)
		}
		out.Touches = append(out.Touches, &domain.Touch{
			TouchID:        int64(i + 1),
			CustomerID:     customerID,
			ChannelID:      channelID,
			EventTS:        t.EventTS,
			Campaign:       t.Campaign,
			SessionID:      t.SessionID,
			RevenueAtEvent: t.RevenueAtEvent,
		})
	}

	orderIDs := make(map[int64]int64, len(ds.Orders))
	for i, o := range ds.Orders {
		customerID, ok := customerIDs[o.ExternalID]
		if !ok {
			return nil, invalid(OrdersFile, line(o.Line, i), "unknown external_id %q", o.ExternalID)
		}
		src := sourceOrderID(o, i)
		if _, dup := orderIDs[src]; dup {
			return nil, invalid(OrdersFile, line(o.Line, i), "duplicate order_id %d", src)
		}
		orderIDs[src] = int64(i + 1)
		out.Orders = append(out.Orders, &domain.Order{
			OrderID:    int64(i + 1),
			CustomerID: customerID,
			OrderTS:    o.OrderTS,
			Amount:     o.Amount,
		})
	}

	type spendKey struct {
		date    int64
		channel int64
	}
	seen := make(map[spendKey]struct{}, len(ds.Spend))
	for i, s := range ds.Spend {
		channelID, ok := channelIDs[s.ChannelName]
		if !ok {
			return nil, invalid(SpendFile, line(s.Line, i), "unknown channel %q", s.ChannelName)
		}
		k := spendKey{date: s.SpendDate.Unix(), channel: channelID}
		if _, dup := seen[k]; dup {
			return nil, invalid(SpendFile, line(s.Line, i), "duplicate spend for %s on %s", s.ChannelName, s.SpendDate.Format(dateLayout))
		}
		seen[k] = struct{}{}
		out.Spend = append(out.Spend, &domain.MarketingSpend{
			SpendDate: s.SpendDate,
			ChannelID: channelID,
			Spend:     s.Spend,
		})
	}

	for i, e := range ds.Events {
		customerID, ok := customerIDs[e.ExternalID]
		if !ok {
			return nil, invalid(EventsFile, line(e.Line, i), "unknown external_id %q", e.ExternalID)
		}
		channelID, ok := channelIDs[e.ChannelName]
		if !ok {
			return nil, invalid(EventsFile, line(e.Line, i), "unknown channel %q", e.ChannelName)
		}
		eventType := domain.EventType(e.EventType)
		if !eventType.Valid() {
			return nil, invalid(EventsFile, line(e.Line, i), "unknown event_type %q", e.EventType)
		}
		var orderID *int64
		if e.OrderID != nil {
			id, ok := orderIDs[*e.OrderID]
			if !ok {
				return nil, invalid(EventsFile, line(e.Line, i), "unknown order_id %d", *e.OrderID)
			}
			orderID = &id
		}
		var productID *int64
		if e.ProductID != nil {
			v := *e.ProductID
			productID = &v
		}
		out.Events = append(out.Events, &domain.Event{
			EventID:    int64(i + 1),
			CustomerID: customerID,
			ChannelID:  channelID,
			EventTS:    e.EventTS,
			EventType:  eventType,
			ProductID:  productID,
			OrderID:    orderID,
		})
	}

	return out, nil
}

func invalid(file string, line int, format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", storage.ErrInvalidInput, file, line, fmt.Sprintf(format, args...))
}
