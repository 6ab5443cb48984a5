package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Touch represents a marketing-channel exposure (fact_touches).
type Touch struct {
	TouchID        int64           // PRIMARY KEY, ingestion order
	CustomerID     int64           // references dim_customer
	ChannelID      int64           // references dim_channel
	EventTS        time.Time       // exposure timestamp (UTC)
	Campaign       string          // optional
	SessionID      string          // optional
	RevenueAtEvent decimal.Decimal // revenue reported by the source at the touch, usually 0
}
