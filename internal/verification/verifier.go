// Package verification checks stored fact_attribution and fact_ltv_cohort
// tables. Rows are checked against the table invariants and compared with a
// fresh recomputation from the source tables.
package verification

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
)

// FloatTolerance is the tolerance for weight comparisons.
const FloatTolerance = 1e-7

// centTolerance is the rounding allowance per credited row.
var centTolerance = decimal.New(1, -2)

// Table names used in divergences.
const (
	TableAttribution = "fact_attribution"
	TableLtv         = "fact_ltv_cohort"
)

// Checks reported in Divergence.Check.
const (
	CheckModel        = "model"
	CheckWeightRange  = "weight_range"
	CheckWeightSum    = "weight_sum"
	CheckConservation = "conservation"
	CheckUnknownOrder = "unknown_order"
	CheckMonotonic    = "monotonic"
	CheckMissing      = "missing"
	CheckUnexpected   = "unexpected"
	CheckWeight       = "weight"
	CheckRevenue      = "revenue"
)

// Divergence is one failed check.
type Divergence struct {
	Table    string
	Key      string
	Check    string
	Expected string
	Actual   string
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s %s %s: expected %s, got %s", d.Table, d.Key, d.Check, d.Expected, d.Actual)
}

// Report contains the result of verifying both derived tables.
type Report struct {
	AttributionRows int
	LtvRows         int
	Divergences     []Divergence
}

// Match reports whether every check passed.
func (r *Report) Match() bool {
	return len(r.Divergences) == 0
}

// Count returns the number of divergences for one table.
func (r *Report) Count(table string) int {
	n := 0
	for _, d := range r.Divergences {
		if d.Table == table {
			n++
		}
	}
	return n
}

type groupKey struct {
	orderID int64
	model   domain.Model
}

func (k groupKey) String() string {
	return fmt.Sprintf("order=%d model=%s", k.orderID, k.model)
}

type group struct {
	rows      int
	weightSum float64
	revenue   decimal.Decimal
}

// CheckAttribution verifies per-row and per-(order, model) invariants:
// known model, weight in [0, 1], weights summing to 1 and attributed revenue
// within 0.01 per row of the order amount. A time_decay group whose weights
// are all zero is accepted when its revenue is zero too.
func CheckAttribution(rows []*domain.AttributionRow, orders []*domain.Order) []Divergence {
	amounts := make(map[int64]decimal.Decimal, len(orders))
	for _, o := range orders {
		amounts[o.OrderID] = o.Amount
	}

	var out []Divergence
	groups := make(map[groupKey]*group)
	var keys []groupKey
	for _, r := range rows {
		k := groupKey{orderID: r.OrderID, model: r.Model}
		if !r.Model.Valid() {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckModel,
				Expected: "known model", Actual: string(r.Model),
			})
		}
		if r.Weight < -FloatTolerance || r.Weight > 1+FloatTolerance {
			out = append(out, Divergence{
				Table: TableAttribution, Key: fmt.Sprintf("%s channel=%d", k, r.ChannelID), Check: CheckWeightRange,
				Expected: "[0, 1]", Actual: formatFloat(r.Weight),
			})
		}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			keys = append(keys, k)
		}
		g.rows++
		g.weightSum += r.Weight
		g.revenue = g.revenue.Add(r.AttributedRevenue)
	}

	for _, k := range keys {
		g := groups[k]
		amount, ok := amounts[k.orderID]
		if !ok {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckUnknownOrder,
				Expected: "order in fact_orders", Actual: "missing",
			})
			continue
		}

		if k.model == domain.ModelTimeDecay && g.weightSum == 0 {
			if !g.revenue.IsZero() {
				out = append(out, Divergence{
					Table: TableAttribution, Key: k.String(), Check: CheckConservation,
					Expected: "0", Actual: g.revenue.String(),
				})
			}
			continue
		}

		if math.Abs(g.weightSum-1) > FloatTolerance*float64(g.rows) {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckWeightSum,
				Expected: "1", Actual: formatFloat(g.weightSum),
			})
		}
		allowed := centTolerance.Mul(decimal.NewFromInt(int64(g.rows)))
		if g.revenue.Sub(amount).Abs().GreaterThan(allowed) {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckConservation,
				Expected: amount.StringFixed(2), Actual: g.revenue.StringFixed(2),
			})
		}
	}
	return out
}

type customerKey struct {
	cohort     time.Time
	customerID int64
}

// CheckLtv verifies that each customer's revenue never decreases as the
// horizon grows.
func CheckLtv(rows []*domain.LtvRow) []Divergence {
	byCustomer := make(map[customerKey][]*domain.LtvRow)
	var keys []customerKey
	for _, r := range rows {
		k := customerKey{cohort: r.CohortMonth.UTC(), customerID: r.CustomerID}
		if _, ok := byCustomer[k]; !ok {
			keys = append(keys, k)
		}
		byCustomer[k] = append(byCustomer[k], r)
	}

	var out []Divergence
	for _, k := range keys {
		series := byCustomer[k]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].HorizonDays < series[j].HorizonDays
		})
		for i := 1; i < len(series); i++ {
			prev, cur := series[i-1], series[i]
			if cur.Revenue.LessThan(prev.Revenue) {
				out = append(out, Divergence{
					Table:    TableLtv,
					Key:      fmt.Sprintf("cohort=%s customer=%d horizon=%d", k.cohort.Format("2006-01-02"), k.customerID, cur.HorizonDays),
					Check:    CheckMonotonic,
					Expected: ">= " + prev.Revenue.StringFixed(2),
					Actual:   cur.Revenue.StringFixed(2),
				})
			}
		}
	}
	return out
}

type creditKey struct {
	orderID   int64
	model     domain.Model
	channelID int64
}

func (k creditKey) String() string {
	return fmt.Sprintf("order=%d model=%s channel=%d", k.orderID, k.model, k.channelID)
}

// CompareAttribution compares stored rows with recomputed rows. Rows are
// summed per (order, model, channel) first, so row order and the split of a
// channel's credit across several touches do not matter.
func CompareAttribution(stored, recomputed []*domain.AttributionRow) []Divergence {
	s := sumCredits(stored)
	r := sumCredits(recomputed)

	var out []Divergence
	for _, k := range sortedCreditKeys(r) {
		want := r[k]
		got, ok := s[k]
		if !ok {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckMissing,
				Expected: want.revenue.StringFixed(2), Actual: "no row",
			})
			continue
		}
		if !floatEquals(got.weightSum, want.weightSum) {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckWeight,
				Expected: formatFloat(want.weightSum), Actual: formatFloat(got.weightSum),
			})
		}
		if !got.revenue.Equal(want.revenue) {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckRevenue,
				Expected: want.revenue.StringFixed(2), Actual: got.revenue.StringFixed(2),
			})
		}
	}
	for _, k := range sortedCreditKeys(s) {
		if _, ok := r[k]; !ok {
			out = append(out, Divergence{
				Table: TableAttribution, Key: k.String(), Check: CheckUnexpected,
				Expected: "no row", Actual: s[k].revenue.StringFixed(2),
			})
		}
	}
	return out
}

type ltvKey struct {
	horizon    int
	cohort     time.Time
	customerID int64
}

func (k ltvKey) String() string {
	return fmt.Sprintf("cohort=%s customer=%d horizon=%d", k.cohort.Format("2006-01-02"), k.customerID, k.horizon)
}

// CompareLtv compares stored rows with recomputed rows keyed by
// (horizon, cohort_month, customer_id).
func CompareLtv(stored, recomputed []*domain.LtvRow) []Divergence {
	index := func(rows []*domain.LtvRow) (map[ltvKey]decimal.Decimal, []ltvKey) {
		m := make(map[ltvKey]decimal.Decimal, len(rows))
		keys := make([]ltvKey, 0, len(rows))
		for _, row := range rows {
			k := ltvKey{horizon: row.HorizonDays, cohort: row.CohortMonth.UTC(), customerID: row.CustomerID}
			if _, ok := m[k]; !ok {
				keys = append(keys, k)
			}
			m[k] = m[k].Add(row.Revenue)
		}
		return m, keys
	}
	s, sKeys := index(stored)
	r, rKeys := index(recomputed)

	var out []Divergence
	for _, k := range rKeys {
		got, ok := s[k]
		switch {
		case !ok:
			out = append(out, Divergence{
				Table: TableLtv, Key: k.String(), Check: CheckMissing,
				Expected: r[k].StringFixed(2), Actual: "no row",
			})
		case !got.Equal(r[k]):
			out = append(out, Divergence{
				Table: TableLtv, Key: k.String(), Check: CheckRevenue,
				Expected: r[k].StringFixed(2), Actual: got.StringFixed(2),
			})
		}
	}
	for _, k := range sKeys {
		if _, ok := r[k]; !ok {
			out = append(out, Divergence{
				Table: TableLtv, Key: k.String(), Check: CheckUnexpected,
				Expected: "no row", Actual: s[k].StringFixed(2),
			})
		}
	}
	return out
}

func sumCredits(rows []*domain.AttributionRow) map[creditKey]*group {
	m := make(map[creditKey]*group, len(rows))
	for _, row := range rows {
		k := creditKey{orderID: row.OrderID, model: row.Model, channelID: row.ChannelID}
		g, ok := m[k]
		if !ok {
			g = &group{}
			m[k] = g
		}
		g.rows++
		g.weightSum += row.Weight
		g.revenue = g.revenue.Add(row.AttributedRevenue)
	}
	return m
}

func sortedCreditKeys(m map[creditKey]*group) []creditKey {
	keys := make([]creditKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.orderID != b.orderID {
			return a.orderID < b.orderID
		}
		if a.model != b.model {
			return a.model < b.model
		}
		return a.channelID < b.channelID
	})
	return keys
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.9f", f)
}
