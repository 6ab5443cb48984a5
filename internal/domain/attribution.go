package domain

import "github.com/shopspring/decimal"

// Model identifies an attribution model.
type Model string

// Attribution models, in the order they are evaluated for each order.
const (
	ModelLastClick  Model = "last_click"
	ModelFirstClick Model = "first_click"
	ModelLinear     Model = "linear"
	ModelTimeDecay  Model = "time_decay"
)

// AllModels lists every supported model in evaluation order.
var AllModels = []Model{ModelLastClick, ModelFirstClick, ModelLinear, ModelTimeDecay}

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	switch m {
	case ModelLastClick, ModelFirstClick, ModelLinear, ModelTimeDecay:
		return true
	default:
		return false
	}
}

// AttributionRow is one credited channel for an (order, model) pair.
// Corresponds to fact_attribution.
//
// An order whose lookback window holds no touches has no rows for any model.
type AttributionRow struct {
	OrderID           int64
	Model             Model
	ChannelID         int64
	Weight            float64         // 0..1, sums to 1 per (order, model)
	AttributedRevenue decimal.Decimal // round(amount * weight, 2)
}
