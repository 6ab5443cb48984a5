// Package attribution assigns order revenue to the marketing touches that
// preceded each order, under several weighting models.
package attribution

import (
	"time"

	"ltv-attribution-lab/internal/domain"
)

// Day is the length of one attribution day. Ages and windows are measured
// in fixed 24h days, not calendar days.
const Day = 24 * time.Hour

// SelectWindow returns the touches with orderTS-window <= EventTS <= orderTS.
// Both bounds are inclusive. Input order is preserved and the input slice is
// not modified; ordering by time is left to the models.
func SelectWindow(touches []*domain.Touch, orderTS time.Time, window time.Duration) []*domain.Touch {
	start := orderTS.Add(-window)

	var selected []*domain.Touch
	for _, t := range touches {
		if t.EventTS.Before(start) || t.EventTS.After(orderTS) {
			continue
		}
		selected = append(selected, t)
	}
	return selected
}
