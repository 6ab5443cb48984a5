package attribution

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
)

// Credit is the share of an order credited to one touch's channel.
type Credit struct {
	ChannelID int64
	Weight    float64
	Revenue   decimal.Decimal
}

// ModelFunc turns a windowed touch list into credits.
// Every model returns nil for an empty window.
type ModelFunc func(window []*domain.Touch, orderTS time.Time, amount decimal.Decimal) []Credit

// Weighting pairs a model identifier with its weighting function.
type Weighting struct {
	Model domain.Model
	Apply ModelFunc
}

// Weightings returns the full model set in evaluation order.
func Weightings(halfLifeDays float64) []Weighting {
	return []Weighting{
		{Model: domain.ModelLastClick, Apply: LastClick},
		{Model: domain.ModelFirstClick, Apply: FirstClick},
		{Model: domain.ModelLinear, Apply: Linear},
		{Model: domain.ModelTimeDecay, Apply: TimeDecay(halfLifeDays)},
	}
}

// LastClick credits the most recent touch with the whole amount.
// Among touches sharing the latest timestamp, the one appearing last in
// input order wins.
func LastClick(window []*domain.Touch, _ time.Time, amount decimal.Decimal) []Credit {
	if len(window) == 0 {
		return nil
	}
	sorted := sortByEventTS(window)
	t := sorted[len(sorted)-1]
	return []Credit{{ChannelID: t.ChannelID, Weight: 1.0, Revenue: creditRevenue(amount, 1.0)}}
}

// FirstClick credits the earliest touch with the whole amount.
// Among touches sharing the earliest timestamp, the first in input order wins.
func FirstClick(window []*domain.Touch, _ time.Time, amount decimal.Decimal) []Credit {
	if len(window) == 0 {
		return nil
	}
	sorted := sortByEventTS(window)
	t := sorted[0]
	return []Credit{{ChannelID: t.ChannelID, Weight: 1.0, Revenue: creditRevenue(amount, 1.0)}}
}

// Linear credits every touch with weight 1/n. Credits are emitted in
// EventTS order.
func Linear(window []*domain.Touch, _ time.Time, amount decimal.Decimal) []Credit {
	n := len(window)
	if n == 0 {
		return nil
	}

	w := 1.0 / float64(n)
	revenue := creditRevenue(amount, w)

	credits := make([]Credit, n)
	for i, t := range sortByEventTS(window) {
		credits[i] = Credit{ChannelID: t.ChannelID, Weight: w, Revenue: revenue}
	}
	return credits
}

// TimeDecay returns a model weighting each touch by 0.5^(age_days/halfLifeDays),
// normalized to sum to 1. age_days is (orderTS - EventTS) in fractional days.
// Credits are emitted in window order.
//
// If the raw weights sum to zero or less, every touch gets weight 0 and zero
// revenue; such credits do not sum to 1.
func TimeDecay(halfLifeDays float64) ModelFunc {
	return func(window []*domain.Touch, orderTS time.Time, amount decimal.Decimal) []Credit {
		if len(window) == 0 {
			return nil
		}

		raw := make([]float64, len(window))
		sum := 0.0
		for i, t := range window {
			raw[i] = DecayWeight(AgeDays(orderTS, t.EventTS), halfLifeDays)
			sum += raw[i]
		}

		credits := make([]Credit, len(window))
		for i, t := range window {
			w := 0.0
			if sum > 0 {
				w = raw[i] / sum
			}
			credits[i] = Credit{ChannelID: t.ChannelID, Weight: w, Revenue: creditRevenue(amount, w)}
		}
		return credits
	}
}

// DecayWeight computes the unnormalized half-life weight 0.5^(ageDays/halfLifeDays).
func DecayWeight(ageDays, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	return math.Pow(0.5, ageDays/halfLifeDays)
}

// AgeDays returns orderTS - eventTS in fractional days.
func AgeDays(orderTS, eventTS time.Time) float64 {
	return orderTS.Sub(eventTS).Seconds() / 86400.0
}

// creditRevenue returns round(amount * weight, 2).
func creditRevenue(amount decimal.Decimal, weight float64) decimal.Decimal {
	if weight == 1.0 {
		return amount.Round(2)
	}
	return amount.Mul(decimal.NewFromFloat(weight)).Round(2)
}

// sortByEventTS returns a stably sorted copy; window slices may alias the index.
func sortByEventTS(touches []*domain.Touch) []*domain.Touch {
	sorted := make([]*domain.Touch, len(touches))
	copy(sorted, touches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventTS.Before(sorted[j].EventTS)
	})
	return sorted
}
