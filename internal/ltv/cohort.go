// Package ltv computes cumulative customer revenue per signup cohort and horizon.
package ltv

import "time"

const day = 24 * time.Hour

// CohortMonth returns the first day of the signup month, UTC.
func CohortMonth(signup time.Time) time.Time {
	s := signup.UTC()
	return time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysSinceSignup returns orderTS - signup in fractional days.
// Orders placed before signup yield a negative value.
func DaysSinceSignup(signup, orderTS time.Time) float64 {
	return orderTS.Sub(signup).Seconds() / day.Seconds()
}
