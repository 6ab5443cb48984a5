package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
)

// Report summarizes the derived tables of one pipeline run.
type Report struct {
	GeneratedAt time.Time

	Summary Summary

	// Sorted by (model evaluation order, channel_id).
	Channels []ChannelSummary

	// Sorted by (cohort_month, horizon_days).
	Cohorts []CohortSummary

	// Sorted by channel_id. Empty unless the generator has an event store.
	Funnel []FunnelSummary
}

// Summary holds table-level counts.
type Summary struct {
	AttributionRows  int
	AttributedOrders int // distinct orders with at least one credited channel
	LtvRows          int
	LtvCustomers     int // distinct customers with at least one LTV row
	TotalSpend       decimal.Decimal
}

// ChannelSummary is attributed revenue of one channel under one model.
type ChannelSummary struct {
	Model          domain.Model
	ChannelID      int64
	ChannelName    string
	ChannelGroup   string
	Revenue        decimal.Decimal
	CreditedOrders int
	WeightSum      float64 // fractional orders credited
	Spend          decimal.Decimal
	ROAS           decimal.Decimal // revenue / spend, 0 when spend is 0
}

// CohortSummary is LTV of one signup cohort at one horizon.
type CohortSummary struct {
	CohortMonth time.Time
	HorizonDays int
	Customers   int // customers with revenue inside the horizon
	Revenue     decimal.Decimal
	AverageLTV  decimal.Decimal // revenue / customers
}

// FunnelSummary counts one channel's events by type.
type FunnelSummary struct {
	ChannelID   int64
	ChannelName string
	Views       int
	Carts       int
	Purchases   int
	CartRate    float64 // carts / views, 0 without views
}
