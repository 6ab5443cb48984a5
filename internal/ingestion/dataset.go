// Package ingestion reads the raw CSV exports, resolves their natural keys to
// surrogate ids and loads them into the source stores.
package ingestion

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source file names inside a data directory.
const (
	ChannelsFile  = "channels.csv"
	CustomersFile = "customers.csv"
	OrdersFile    = "orders.csv"
	TouchesFile   = "touches.csv"
	SpendFile     = "spend.csv"
	EventsFile    = "events.csv" // optional
)

// ChannelRecord is one row of channels.csv.
type ChannelRecord struct {
	Name  string
	Group string
	Line  int
}

// CustomerRecord is one row of customers.csv.
type CustomerRecord struct {
	ExternalID string
	SignupDate time.Time
	Country    string
	Line       int
}

// OrderRecord is one row of orders.csv.
type OrderRecord struct {
	OrderID    int64 // source id referenced by events.csv; surrogate ids follow file order
	OrderTS    time.Time
	ExternalID string
	Amount     decimal.Decimal
	Line       int
}

// TouchRecord is one row of touches.csv.
type TouchRecord struct {
	EventTS        time.Time
	ExternalID     string
	ChannelName    string
	Campaign       string
	SessionID      string
	RevenueAtEvent decimal.Decimal
	Line           int
}

// SpendRecord is one row of spend.csv.
type SpendRecord struct {
	SpendDate   time.Time
	ChannelName string
	Spend       decimal.Decimal
	Line        int
}

// EventRecord is one row of events.csv. OrderID refers to the source
// order_id of orders.csv and is set on purchase events only.
type EventRecord struct {
	EventTS     time.Time
	ExternalID  string
	ChannelName string
	EventType   string
	ProductID   *int64
	OrderID     *int64
	Line        int
}

// Dataset is the raw content of one data directory, keyed by natural keys.
// Line is the 1-based CSV line of a record, or 0 for generated records.
type Dataset struct {
	Channels  []ChannelRecord
	Customers []CustomerRecord
	Orders    []OrderRecord
	Touches   []TouchRecord
	Spend     []SpendRecord
	Events    []EventRecord
}

// sourceOrderID returns the order_id an order is written and referenced
// under: its source id, or its 1-based position when it has none.
func sourceOrderID(o OrderRecord, index int) int64 {
	if o.OrderID != 0 {
		return o.OrderID
	}
	return int64(index + 1)
}

// line returns the record's CSV line, or the line it would occupy when written.
func line(recordLine, index int) int {
	if recordLine > 0 {
		return recordLine
	}
	return index + 2
}
