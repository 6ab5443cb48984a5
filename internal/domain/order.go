package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a row of fact_orders.
// Each order belongs to exactly one customer.
type Order struct {
	OrderID    int64           // PRIMARY KEY
	CustomerID int64           // references dim_customer
	OrderTS    time.Time       // order timestamp (UTC)
	Amount     decimal.Decimal // order value, >= 0
}
