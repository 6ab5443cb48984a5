package attribution

import (
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
)

var baseTS = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// touchAt creates a touch aged ageDays before baseTS.
func touchAt(id, customerID, channelID int64, ageDays float64) *domain.Touch {
	return &domain.Touch{
		TouchID:    id,
		CustomerID: customerID,
		ChannelID:  channelID,
		EventTS:    baseTS.Add(-time.Duration(ageDays * float64(Day))),
	}
}

func makeOrder(id, customerID int64, ts time.Time, amount string) *domain.Order {
	return &domain.Order{
		OrderID:    id,
		CustomerID: customerID,
		OrderTS:    ts,
		Amount:     decimal.RequireFromString(amount),
	}
}

func sumWeights(credits []Credit) float64 {
	s := 0.0
	for _, c := range credits {
		s += c.Weight
	}
	return s
}

func sumRevenue(credits []Credit) decimal.Decimal {
	s := decimal.Zero
	for _, c := range credits {
		s = s.Add(c.Revenue)
	}
	return s
}
