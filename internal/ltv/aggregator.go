package ltv

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
)

// ErrInvalidConfig is returned for unusable horizon sets.
var ErrInvalidConfig = errors.New("invalid ltv config")

// Config holds LTV parameters.
type Config struct {
	Horizons []int // days since signup, inclusive
}

// DefaultConfig returns horizons 30, 60, 90 and 180.
func DefaultConfig() Config {
	return Config{Horizons: append([]int(nil), domain.DefaultHorizons...)}
}

// Validate checks that horizons are non-empty, positive and unique.
func (c Config) Validate() error {
	if len(c.Horizons) == 0 {
		return fmt.Errorf("%w: at least one horizon is required", ErrInvalidConfig)
	}
	seen := make(map[int]bool, len(c.Horizons))
	for _, h := range c.Horizons {
		if h <= 0 {
			return fmt.Errorf("%w: horizon must be > 0, got %d", ErrInvalidConfig, h)
		}
		if seen[h] {
			return fmt.Errorf("%w: duplicate horizon %d", ErrInvalidConfig, h)
		}
		seen[h] = true
	}
	return nil
}

// Result holds the fact_ltv_cohort table for one run.
type Result struct {
	Rows []*domain.LtvRow

	// UnmatchedOrders counts orders whose customer is not in the customer set.
	UnmatchedOrders int
}

// Aggregator computes fact_ltv_cohort from customers and orders.
type Aggregator struct {
	horizons []int
}

// NewAggregator creates an aggregator. Horizons are evaluated in ascending order.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	horizons := append([]int(nil), cfg.Horizons...)
	sort.Ints(horizons)
	return &Aggregator{horizons: horizons}, nil
}

type customerKey struct {
	cohort     int64 // unix seconds of the cohort month
	customerID int64
}

// Compute sums each customer's order amounts with 0 <= days_since_signup <= h
// for every horizon h. A (cohort, customer, horizon) row is emitted only when
// at least one order qualifies.
// Rows are sorted by (horizon, cohort_month, customer_id).
func (a *Aggregator) Compute(ctx context.Context, customers []*domain.Customer, orders []*domain.Order) (*Result, error) {
	signups := make(map[int64]*domain.Customer, len(customers))
	for _, c := range customers {
		if c == nil {
			continue
		}
		if _, dup := signups[c.CustomerID]; !dup {
			signups[c.CustomerID] = c
		}
	}

	result := &Result{}
	// sums[i] accumulates revenue for horizons[i]
	sums := make([]map[int64]decimal.Decimal, len(a.horizons))
	for i := range sums {
		sums[i] = make(map[int64]decimal.Decimal)
	}

	for n, o := range orders {
		if o == nil {
			continue
		}
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("aggregate ltv: %w", err)
			}
		}

		c, ok := signups[o.CustomerID]
		if !ok {
			result.UnmatchedOrders++
			continue
		}

		days := DaysSinceSignup(c.SignupDate, o.OrderTS)
		if days < 0 {
			continue
		}
		for i, h := range a.horizons {
			if days <= float64(h) {
				sums[i][o.CustomerID] = sums[i][o.CustomerID].Add(o.Amount)
			}
		}
	}

	for i, h := range a.horizons {
		keys := make([]customerKey, 0, len(sums[i]))
		for id := range sums[i] {
			keys = append(keys, customerKey{
				cohort:     CohortMonth(signups[id].SignupDate).Unix(),
				customerID: id,
			})
		}
		sort.Slice(keys, func(x, y int) bool {
			if keys[x].cohort != keys[y].cohort {
				return keys[x].cohort < keys[y].cohort
			}
			return keys[x].customerID < keys[y].customerID
		})

		for _, k := range keys {
			result.Rows = append(result.Rows, &domain.LtvRow{
				CohortMonth: CohortMonth(signups[k.customerID].SignupDate),
				CustomerID:  k.customerID,
				HorizonDays: h,
				Revenue:     sums[i][k.customerID],
			})
		}
	}
	return result, nil
}
