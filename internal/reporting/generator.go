// Package reporting builds channel and cohort summaries from the derived
// tables and renders them as Markdown, CSV or terminal tables.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	attributionStore storage.AttributionStore
	ltvStore         storage.LtvStore
	channelStore     storage.ChannelStore
	spendStore       storage.SpendStore
	eventStore       storage.EventStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. channelStore and spendStore may
// be nil; channel names then fall back to ids and spend to zero.
func NewGenerator(
	attributionStore storage.AttributionStore,
	ltvStore storage.LtvStore,
	channelStore storage.ChannelStore,
	spendStore storage.SpendStore,
) *Generator {
	return &Generator{
		attributionStore: attributionStore,
		ltvStore:         ltvStore,
		channelStore:     channelStore,
		spendStore:       spendStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithEvents adds the event funnel section, read from eventStore.
func (g *Generator) WithEvents(eventStore storage.EventStore) *Generator {
	g.eventStore = eventStore
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	attribution, err := g.attributionStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attribution: %w", err)
	}
	ltvRows, err := g.ltvStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ltv: %w", err)
	}

	channels := make(map[int64]*domain.Channel)
	if g.channelStore != nil {
		all, err := g.channelStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load channels: %w", err)
		}
		for _, c := range all {
			channels[c.ChannelID] = c
		}
	}

	spendByChannel := make(map[int64]decimal.Decimal)
	totalSpend := decimal.Zero
	if g.spendStore != nil {
		all, err := g.spendStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load spend: %w", err)
		}
		for _, s := range all {
			spendByChannel[s.ChannelID] = spendByChannel[s.ChannelID].Add(s.Spend)
			totalSpend = totalSpend.Add(s.Spend)
		}
	}

	var funnel []FunnelSummary
	if g.eventStore != nil {
		events, err := g.eventStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load events: %w", err)
		}
		funnel = FunnelSummaries(events, channels)
	}

	return &Report{
		GeneratedAt: g.now(),
		Summary:     summarize(attribution, ltvRows, totalSpend),
		Channels:    ChannelSummaries(attribution, channels, spendByChannel),
		Cohorts:     CohortSummaries(ltvRows),
		Funnel:      funnel,
	}, nil
}

func summarize(attribution []*domain.AttributionRow, ltvRows []*domain.LtvRow, totalSpend decimal.Decimal) Summary {
	orders := make(map[int64]struct{})
	for _, r := range attribution {
		orders[r.OrderID] = struct{}{}
	}
	customers := make(map[int64]struct{})
	for _, r := range ltvRows {
		customers[r.CustomerID] = struct{}{}
	}
	return Summary{
		AttributionRows:  len(attribution),
		AttributedOrders: len(orders),
		LtvRows:          len(ltvRows),
		LtvCustomers:     len(customers),
		TotalSpend:       totalSpend,
	}
}

// ChannelSummaries groups attribution rows by (model, channel). Spend is the
// channel's total spend and is repeated for every model.
func ChannelSummaries(
	rows []*domain.AttributionRow,
	channels map[int64]*domain.Channel,
	spend map[int64]decimal.Decimal,
) []ChannelSummary {
	type key struct {
		model   domain.Model
		channel int64
	}
	groups := make(map[key]*ChannelSummary)
	orders := make(map[key]map[int64]struct{})

	for _, r := range rows {
		k := key{model: r.Model, channel: r.ChannelID}
		s := groups[k]
		if s == nil {
			s = &ChannelSummary{Model: r.Model, ChannelID: r.ChannelID, Revenue: decimal.Zero}
			groups[k] = s
			orders[k] = make(map[int64]struct{})
		}
		s.Revenue = s.Revenue.Add(r.AttributedRevenue)
		s.WeightSum += r.Weight
		orders[k][r.OrderID] = struct{}{}
	}

	out := make([]ChannelSummary, 0, len(groups))
	for k, s := range groups {
		s.CreditedOrders = len(orders[k])
		if c, ok := channels[k.channel]; ok {
			s.ChannelName = c.Name
			s.ChannelGroup = c.Group
		} else {
			s.ChannelName = fmt.Sprintf("channel %d", k.channel)
		}
		s.Spend = spend[k.channel]
		s.ROAS = roas(s.Revenue, s.Spend)
		out = append(out, *s)
	}

	rank := make(map[domain.Model]int, len(domain.AllModels))
	for i, m := range domain.AllModels {
		rank[m] = i
	}
	// Sort by (model evaluation order, channel_id)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return rank[out[i].Model] < rank[out[j].Model]
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	return out
}

// CohortSummaries groups LTV rows by (cohort_month, horizon).
func CohortSummaries(rows []*domain.LtvRow) []CohortSummary {
	type key struct {
		cohort  int64
		horizon int
	}
	groups := make(map[key]*CohortSummary)
	for _, r := range rows {
		k := key{cohort: r.CohortMonth.Unix(), horizon: r.HorizonDays}
		s := groups[k]
		if s == nil {
			s = &CohortSummary{CohortMonth: r.CohortMonth, HorizonDays: r.HorizonDays, Revenue: decimal.Zero}
			groups[k] = s
		}
		s.Customers++
		s.Revenue = s.Revenue.Add(r.Revenue)
	}

	out := make([]CohortSummary, 0, len(groups))
	for _, s := range groups {
		s.AverageLTV = s.Revenue.Div(decimal.NewFromInt(int64(s.Customers))).Round(2)
		out = append(out, *s)
	}

	// Sort by (cohort_month, horizon_days)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CohortMonth.Equal(out[j].CohortMonth) {
			return out[i].CohortMonth.Before(out[j].CohortMonth)
		}
		return out[i].HorizonDays < out[j].HorizonDays
	})
	return out
}

// FunnelSummaries counts events per channel and type, sorted by channel_id.
func FunnelSummaries(events []*domain.Event, channels map[int64]*domain.Channel) []FunnelSummary {
	groups := make(map[int64]*FunnelSummary)
	for _, e := range events {
		s := groups[e.ChannelID]
		if s == nil {
			s = &FunnelSummary{ChannelID: e.ChannelID}
			groups[e.ChannelID] = s
		}
		switch e.EventType {
		case domain.EventViewProduct:
			s.Views++
		case domain.EventAddToCart:
			s.Carts++
		case domain.EventPurchase:
			s.Purchases++
		}
	}

	out := make([]FunnelSummary, 0, len(groups))
	for id, s := range groups {
		if c, ok := channels[id]; ok {
			s.ChannelName = c.Name
		} else {
			s.ChannelName = fmt.Sprintf("channel %d", id)
		}
		if s.Views > 0 {
			s.CartRate = float64(s.Carts) / float64(s.Views)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChannelID < out[j].ChannelID
	})
	return out
}

func roas(revenue, spend decimal.Decimal) decimal.Decimal {
	if !spend.IsPositive() {
		return decimal.Zero
	}
	return revenue.DivRound(spend, 4)
}
