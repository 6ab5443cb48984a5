// Package synth generates a deterministic synthetic marketing dataset:
// channels, customers, orders, the touches that preceded each order, daily
// channel spend and funnel events.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/ingestion"
)

// ErrInvalidConfig is returned for unusable generator parameters.
var ErrInvalidConfig = errors.New("invalid synth config")

// DefaultChannels are the generated marketing channels, in id order.
var DefaultChannels = []ingestion.ChannelRecord{
	{Name: "Google Ads", Group: "Paid Search"},
	{Name: "Facebook Ads", Group: "Paid Social"},
	{Name: "Instagram", Group: "Paid Social"},
	{Name: "Email", Group: "Owned"},
	{Name: "Direct", Group: "Direct"},
	{Name: "Referral", Group: "Referral"},
}

// country draws: MX 70%, US 20%, CO 10%.
var countries = []struct {
	code string
	cum  float64
}{
	{"MX", 0.7},
	{"US", 0.9},
	{"CO", 1.0},
}

// Config controls the generator. The same Config always yields the same Dataset.
type Config struct {
	Seed      uint64
	Customers int
	Start     time.Time // first possible signup and spend date
	End       time.Time // last spend date

	OrdersPerCustomer float64 // Poisson mean
	AmountMu          float64 // lognormal mu of order amounts
	AmountSigma       float64 // lognormal sigma of order amounts
	SpendMean         float64 // daily spend per channel
	SpendStddev       float64
}

// DefaultConfig returns the standard sample: 80 customers signing up between
// 2024-11-01 and 2025-07-31.
func DefaultConfig() Config {
	return Config{
		Seed:              42,
		Customers:         80,
		Start:             time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
		End:               time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
		OrdersPerCustomer: 1.2,
		AmountMu:          4.2,
		AmountSigma:       0.5,
		SpendMean:         200,
		SpendStddev:       80,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.Customers < 0 {
		return fmt.Errorf("%w: customers must be >= 0, got %d", ErrInvalidConfig, c.Customers)
	}
	if c.Start.IsZero() || c.End.IsZero() || c.End.Before(c.Start) {
		return fmt.Errorf("%w: need start <= end, got %s..%s", ErrInvalidConfig, c.Start, c.End)
	}
	if c.OrdersPerCustomer < 0 || c.AmountSigma < 0 || c.SpendStddev < 0 {
		return fmt.Errorf("%w: negative rate or deviation", ErrInvalidConfig)
	}
	return nil
}

// Generate builds the dataset.
func Generate(cfg Config) (*ingestion.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}

	ds := &ingestion.Dataset{
		Channels: append([]ingestion.ChannelRecord(nil), DefaultChannels...),
	}
	ds.Customers = g.customers()
	ds.Orders = g.orders(ds.Customers)
	ds.Touches = g.touches(ds.Orders)
	ds.Spend = g.spend()
	ds.Events = g.events(ds.Customers, ds.Orders)
	return ds, nil
}

type generator struct {
	cfg Config
	rng *rand.Rand
}

const day = 24 * time.Hour

func (g *generator) customers() []ingestion.CustomerRecord {
	start, end := dateOf(g.cfg.Start), dateOf(g.cfg.End)
	spanDays := int(end.Sub(start) / day)

	out := make([]ingestion.CustomerRecord, 0, g.cfg.Customers)
	for i := 0; i < g.cfg.Customers; i++ {
		offset := 0
		if spanDays > 0 {
			offset = g.rng.IntN(spanDays)
		}
		out = append(out, ingestion.CustomerRecord{
			ExternalID: fmt.Sprintf("C%04d", i+1),
			SignupDate: start.AddDate(0, 0, offset),
			Country:    g.country(),
		})
	}
	return out
}

func (g *generator) country() string {
	u := g.rng.Float64()
	for _, c := range countries {
		if u < c.cum {
			return c.code
		}
	}
	return countries[len(countries)-1].code
}

// orders chains each customer's purchases 3-59 days apart, starting within a
// week of signup.
func (g *generator) orders(customers []ingestion.CustomerRecord) []ingestion.OrderRecord {
	var out []ingestion.OrderRecord
	for _, c := range customers {
		n := g.poisson(g.cfg.OrdersPerCustomer)
		last := c.SignupDate.Add(time.Duration(g.rng.IntN(7)) * day)
		for j := 0; j < n; j++ {
			ts := last.
				Add(time.Duration(3+g.rng.IntN(57)) * day).
				Add(time.Duration(g.rng.IntN(24)) * time.Hour).
				Add(time.Duration(g.rng.IntN(60)) * time.Minute)
			amount := math.Exp(g.cfg.AmountMu + g.cfg.AmountSigma*g.rng.NormFloat64())
			out = append(out, ingestion.OrderRecord{
				OrderID:    int64(len(out) + 1),
				OrderTS:    ts,
				ExternalID: c.ExternalID,
				Amount:     decimal.NewFromFloat(amount).Round(2),
			})
			last = ts
		}
	}
	return out
}

// touches emits 3-6 touches per order, two hours apart, starting 1-24 days
// before the order. Touches of one order share a session.
func (g *generator) touches(orders []ingestion.OrderRecord) []ingestion.TouchRecord {
	var out []ingestion.TouchRecord
	for _, o := range orders {
		n := 3 + g.rng.IntN(4)
		base := o.OrderTS.Add(-time.Duration(1+g.rng.IntN(24)) * day)
		session := fmt.Sprintf("S%d", g.rng.IntN(1_000_000))
		for i := 0; i < n; i++ {
			ts := base.
				Add(time.Duration(2*i) * time.Hour).
				Add(time.Duration(g.rng.IntN(60)) * time.Minute)
			ch := DefaultChannels[g.rng.IntN(len(DefaultChannels))]
			out = append(out, ingestion.TouchRecord{
				EventTS:        ts,
				ExternalID:     o.ExternalID,
				ChannelName:    ch.Name,
				Campaign:       fmt.Sprintf("%s / %d", ch.Name, ts.Year()),
				SessionID:      session,
				RevenueAtEvent: decimal.Zero,
			})
		}
	}
	return out
}

// spend draws one non-negative amount per channel per day, Start..End inclusive.
func (g *generator) spend() []ingestion.SpendRecord {
	var out []ingestion.SpendRecord
	end := dateOf(g.cfg.End)
	for d := dateOf(g.cfg.Start); !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, ch := range DefaultChannels {
			v := math.Max(0, g.cfg.SpendMean+g.cfg.SpendStddev*g.rng.NormFloat64())
			out = append(out, ingestion.SpendRecord{
				SpendDate:   d,
				ChannelName: ch.Name,
				Spend:       decimal.NewFromFloat(v).Round(2),
			})
		}
	}
	return out
}

// events emits 3-10 product views and 1 to max(2, views/2)-1 cart adds per
// customer within 45 days of signup, then one purchase per order at the
// order's timestamp.
func (g *generator) events(customers []ingestion.CustomerRecord, orders []ingestion.OrderRecord) []ingestion.EventRecord {
	var out []ingestion.EventRecord
	for _, c := range customers {
		views := 3 + g.rng.IntN(8)
		carts := 1 + g.rng.IntN(max(2, views/2)-1)
		for i := 0; i < views+carts; i++ {
			kind := "view_product"
			if i >= views {
				kind = "add_to_cart"
			}
			ts := c.SignupDate.
				Add(time.Duration(g.rng.IntN(46)) * day).
				Add(time.Duration(g.rng.IntN(25)) * time.Hour).
				Add(time.Duration(g.rng.IntN(61)) * time.Minute)
			out = append(out, ingestion.EventRecord{
				EventTS:     ts,
				ExternalID:  c.ExternalID,
				ChannelName: DefaultChannels[g.rng.IntN(len(DefaultChannels))].Name,
				EventType:   kind,
			})
		}
	}
	for _, o := range orders {
		id := o.OrderID
		out = append(out, ingestion.EventRecord{
			EventTS:     o.OrderTS,
			ExternalID:  o.ExternalID,
			ChannelName: DefaultChannels[g.rng.IntN(len(DefaultChannels))].Name,
			EventType:   "purchase",
			OrderID:     &id,
		})
	}
	return out
}

// poisson samples by inversion (Knuth); means here are small.
func (g *generator) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := g.rng.Float64()
	for p > limit {
		k++
		p *= g.rng.Float64()
	}
	return k
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
