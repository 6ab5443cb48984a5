package domain

import "time"

// EventType identifies a funnel event.
type EventType string

// Funnel event types, in funnel order.
const (
	EventViewProduct EventType = "view_product"
	EventAddToCart   EventType = "add_to_cart"
	EventPurchase    EventType = "purchase"
)

// AllEventTypes lists every funnel event type in funnel order.
var AllEventTypes = []EventType{EventViewProduct, EventAddToCart, EventPurchase}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventViewProduct, EventAddToCart, EventPurchase:
		return true
	default:
		return false
	}
}

// Event represents a row of fact_events.
// Purchase events usually reference the order they produced.
type Event struct {
	EventID    int64     // PRIMARY KEY, ingestion order
	CustomerID int64     // references dim_customer
	ChannelID  int64     // references dim_channel
	EventTS    time.Time // event timestamp (UTC)
	EventType  EventType
	ProductID  *int64 // optional
	OrderID    *int64 // optional, references fact_orders
}
