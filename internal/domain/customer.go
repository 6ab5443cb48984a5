package domain

import "time"

// Customer represents a row of dim_customer.
type Customer struct {
	CustomerID int64     // PRIMARY KEY
	ExternalID string    // source-system identifier (e.g. C0001)
	SignupDate time.Time // calendar date, midnight UTC
	Country    string    // ISO country code, may be empty
}
