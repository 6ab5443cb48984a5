package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel represents a marketing channel (dim_channel).
type Channel struct {
	ChannelID int64
	Name      string // e.g. "Google Ads"
	Group     string // e.g. "Paid Search"
}

// MarketingSpend is the daily spend of one channel (fact_marketing_spend).
type MarketingSpend struct {
	SpendDate time.Time // calendar date, midnight UTC
	ChannelID int64
	Spend     decimal.Decimal
}
