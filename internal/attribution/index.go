package attribution

import (
	"sort"
	"time"

	"ltv-attribution-lab/internal/domain"
)

// TouchIndex groups touches by customer, each group sorted by EventTS.
// Touches with equal timestamps keep their input order.
// Built once per run so each order costs a lookup instead of a full scan.
type TouchIndex struct {
	byCustomer map[int64][]*domain.Touch
	total      int
}

// NewTouchIndex builds the index in O(n log n) over all touches.
func NewTouchIndex(touches []*domain.Touch) *TouchIndex {
	byCustomer := make(map[int64][]*domain.Touch)
	for _, t := range touches {
		if t == nil {
			continue
		}
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	for _, group := range byCustomer {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].EventTS.Before(group[j].EventTS)
		})
	}

	return &TouchIndex{byCustomer: byCustomer, total: len(touches)}
}

// Touches returns all touches of a customer ordered by EventTS.
// The returned slice must not be modified.
func (ix *TouchIndex) Touches(customerID int64) []*domain.Touch {
	return ix.byCustomer[customerID]
}

// Window returns the customer's touches inside the lookback window ending at
// orderTS. Equivalent to SelectWindow over Touches(customerID), but uses
// binary search on the sorted group. The returned slice must not be modified.
func (ix *TouchIndex) Window(customerID int64, orderTS time.Time, window time.Duration) []*domain.Touch {
	group := ix.byCustomer[customerID]
	if len(group) == 0 {
		return nil
	}

	start := orderTS.Add(-window)
	lo := sort.Search(len(group), func(i int) bool {
		return !group[i].EventTS.Before(start)
	})
	hi := sort.Search(len(group), func(i int) bool {
		return group[i].EventTS.After(orderTS)
	})
	if lo >= hi {
		return nil
	}
	return group[lo:hi:hi]
}

// Customers returns the number of customers with at least one touch.
func (ix *TouchIndex) Customers() int {
	return len(ix.byCustomer)
}

// Len returns the number of indexed touches.
func (ix *TouchIndex) Len() int {
	return ix.total
}
