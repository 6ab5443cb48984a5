package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHorizons are the LTV horizons in days since signup.
var DefaultHorizons = []int{30, 60, 90, 180}

// LtvRow is the cumulative revenue of one customer within a horizon.
// Corresponds to fact_ltv_cohort. Rows exist only for horizons in which the
// customer has at least one order (sparse, never zero-filled).
type LtvRow struct {
	CohortMonth time.Time // first day of the signup month, UTC
	CustomerID  int64
	HorizonDays int
	Revenue     decimal.Decimal
}
