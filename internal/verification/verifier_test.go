package verification

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/ltv"
	"ltv-attribution-lab/internal/storage/memory"
)

var signup = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckAttribution_Valid(t *testing.T) {
	orders := []*domain.Order{{OrderID: 1, CustomerID: 1, Amount: dec("100.00")}}
	rows := []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLastClick, ChannelID: 2, Weight: 1, AttributedRevenue: dec("100.00")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 1.0 / 3, AttributedRevenue: dec("33.33")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 2, Weight: 1.0 / 3, AttributedRevenue: dec("33.33")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 3, Weight: 1.0 / 3, AttributedRevenue: dec("33.33")},
	}

	if divs := CheckAttribution(rows, orders); len(divs) != 0 {
		t.Errorf("expected no divergences, got %v", divs)
	}
}

func TestCheckAttribution_ZeroDecayWeights(t *testing.T) {
	orders := []*domain.Order{{OrderID: 1, CustomerID: 1, Amount: dec("50.00")}}
	rows := []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelTimeDecay, ChannelID: 1, Weight: 0, AttributedRevenue: decimal.Zero},
		{OrderID: 1, Model: domain.ModelTimeDecay, ChannelID: 2, Weight: 0, AttributedRevenue: decimal.Zero},
	}

	if divs := CheckAttribution(rows, orders); len(divs) != 0 {
		t.Errorf("zero-weight time_decay group should pass, got %v", divs)
	}

	rows[0].AttributedRevenue = dec("1.00")
	divs := CheckAttribution(rows, orders)
	if len(divs) != 1 || divs[0].Check != CheckConservation {
		t.Errorf("expected one conservation divergence, got %v", divs)
	}
}

func TestCheckAttribution_Violations(t *testing.T) {
	orders := []*domain.Order{{OrderID: 1, CustomerID: 1, Amount: dec("100.00")}}

	tests := []struct {
		name  string
		rows  []*domain.AttributionRow
		check string
	}{
		{
			name: "unknown model",
			rows: []*domain.AttributionRow{
				{OrderID: 1, Model: "u_shaped", ChannelID: 1, Weight: 1, AttributedRevenue: dec("100.00")},
			},
			check: CheckModel,
		},
		{
			name: "weight out of range",
			rows: []*domain.AttributionRow{
				{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 1.5, AttributedRevenue: dec("150.00")},
				{OrderID: 1, Model: domain.ModelLinear, ChannelID: 2, Weight: -0.5, AttributedRevenue: dec("-50.00")},
			},
			check: CheckWeightRange,
		},
		{
			name: "weights do not sum to one",
			rows: []*domain.AttributionRow{
				{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 0.5, AttributedRevenue: dec("50.00")},
				{OrderID: 1, Model: domain.ModelLinear, ChannelID: 2, Weight: 0.4, AttributedRevenue: dec("50.00")},
			},
			check: CheckWeightSum,
		},
		{
			name: "revenue not conserved",
			rows: []*domain.AttributionRow{
				{OrderID: 1, Model: domain.ModelFirstClick, ChannelID: 1, Weight: 1, AttributedRevenue: dec("99.00")},
			},
			check: CheckConservation,
		},
		{
			name: "unknown order",
			rows: []*domain.AttributionRow{
				{OrderID: 9, Model: domain.ModelFirstClick, ChannelID: 1, Weight: 1, AttributedRevenue: dec("10.00")},
			},
			check: CheckUnknownOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			divs := CheckAttribution(tt.rows, orders)
			if len(divs) == 0 {
				t.Fatal("expected divergences")
			}
			for _, d := range divs {
				if d.Check != tt.check {
					t.Errorf("check = %q, want %q (%s)", d.Check, tt.check, d)
				}
				if d.Table != TableAttribution {
					t.Errorf("table = %q", d.Table)
				}
			}
		})
	}
}

func TestCheckAttribution_RoundingAllowance(t *testing.T) {
	// 3 x 33.34 = 100.02 is within 0.01 per row of 100.00.
	orders := []*domain.Order{{OrderID: 1, CustomerID: 1, Amount: dec("100.00")}}
	rows := []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 1.0 / 3, AttributedRevenue: dec("33.34")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 2, Weight: 1.0 / 3, AttributedRevenue: dec("33.34")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 3, Weight: 1.0 / 3, AttributedRevenue: dec("33.34")},
	}
	if divs := CheckAttribution(rows, orders); len(divs) != 0 {
		t.Errorf("expected no divergences, got %v", divs)
	}
}

func TestCheckLtv(t *testing.T) {
	cohort := signup
	rows := []*domain.LtvRow{
		{CohortMonth: cohort, CustomerID: 1, HorizonDays: 60, Revenue: dec("100.00")},
		{CohortMonth: cohort, CustomerID: 1, HorizonDays: 30, Revenue: dec("40.00")},
		{CohortMonth: cohort, CustomerID: 1, HorizonDays: 90, Revenue: dec("100.00")},
		{CohortMonth: cohort, CustomerID: 2, HorizonDays: 30, Revenue: dec("20.00")},
	}
	if divs := CheckLtv(rows); len(divs) != 0 {
		t.Errorf("expected no divergences, got %v", divs)
	}

	rows = append(rows, &domain.LtvRow{CohortMonth: cohort, CustomerID: 2, HorizonDays: 60, Revenue: dec("10.00")})
	divs := CheckLtv(rows)
	if len(divs) != 1 {
		t.Fatalf("expected 1 divergence, got %v", divs)
	}
	if divs[0].Check != CheckMonotonic || divs[0].Table != TableLtv {
		t.Errorf("divergence = %+v", divs[0])
	}
}

func TestCompareAttribution(t *testing.T) {
	recomputed := []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 0.5, AttributedRevenue: dec("5.00")},
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 0.5, AttributedRevenue: dec("5.00")},
	}

	// One summed row per channel matches two split rows.
	stored := []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 1, AttributedRevenue: dec("10.00")},
	}
	if divs := CompareAttribution(stored, recomputed); len(divs) != 0 {
		t.Errorf("expected match, got %v", divs)
	}

	stored = []*domain.AttributionRow{
		{OrderID: 1, Model: domain.ModelLinear, ChannelID: 1, Weight: 1, AttributedRevenue: dec("9.00")},
		{OrderID: 2, Model: domain.ModelLinear, ChannelID: 1, Weight: 1, AttributedRevenue: dec("1.00")},
	}
	divs := CompareAttribution(stored, recomputed)
	if len(divs) != 2 {
		t.Fatalf("expected 2 divergences, got %v", divs)
	}
	if divs[0].Check != CheckRevenue || divs[1].Check != CheckUnexpected {
		t.Errorf("checks = %q, %q", divs[0].Check, divs[1].Check)
	}

	divs = CompareAttribution(nil, recomputed)
	if len(divs) != 1 || divs[0].Check != CheckMissing {
		t.Errorf("expected one missing divergence, got %v", divs)
	}
}

func TestCompareLtv(t *testing.T) {
	recomputed := []*domain.LtvRow{
		{CohortMonth: signup, CustomerID: 1, HorizonDays: 30, Revenue: dec("40.00")},
		{CohortMonth: signup, CustomerID: 1, HorizonDays: 60, Revenue: dec("100.00")},
	}
	stored := []*domain.LtvRow{
		{CohortMonth: signup, CustomerID: 1, HorizonDays: 60, Revenue: dec("100")},
		{CohortMonth: signup, CustomerID: 1, HorizonDays: 30, Revenue: dec("40")},
	}
	if divs := CompareLtv(stored, recomputed); len(divs) != 0 {
		t.Errorf("expected match, got %v", divs)
	}

	stored = stored[:1]
	divs := CompareLtv(stored, recomputed)
	if len(divs) != 1 || divs[0].Check != CheckMissing {
		t.Errorf("expected one missing divergence, got %v", divs)
	}
}

type fixture struct {
	customers   *memory.CustomerStore
	orders      *memory.OrderStore
	touches     *memory.TouchStore
	attribution *memory.AttributionStore
	ltv         *memory.LtvStore
}

// newFixture seeds one customer with one order and three touches, then stores
// freshly computed derived tables.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		customers:   memory.NewCustomerStore(),
		orders:      memory.NewOrderStore(),
		touches:     memory.NewTouchStore(),
		attribution: memory.NewAttributionStore(),
		ltv:         memory.NewLtvStore(),
	}

	customers := []*domain.Customer{{CustomerID: 1, ExternalID: "C0001", SignupDate: signup}}
	orders := []*domain.Order{
		{OrderID: 1, CustomerID: 1, OrderTS: signup.AddDate(0, 0, 10), Amount: dec("40.00")},
	}
	touches := []*domain.Touch{
		{TouchID: 1, CustomerID: 1, ChannelID: 1, EventTS: signup.Add(10 * time.Hour)},
		{TouchID: 2, CustomerID: 1, ChannelID: 2, EventTS: signup.AddDate(0, 0, 5)},
		{TouchID: 3, CustomerID: 1, ChannelID: 3, EventTS: signup.AddDate(0, 0, 9)},
	}
	if err := f.customers.InsertBulk(ctx, customers); err != nil {
		t.Fatal(err)
	}
	if err := f.orders.InsertBulk(ctx, orders); err != nil {
		t.Fatal(err)
	}
	if err := f.touches.InsertBulk(ctx, touches); err != nil {
		t.Fatal(err)
	}

	engine, err := attribution.NewEngine(attribution.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	attr, err := engine.Compute(ctx, orders, touches)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.attribution.ReplaceAll(ctx, attr.Rows); err != nil {
		t.Fatal(err)
	}

	agg, err := ltv.NewAggregator(ltv.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	lt, err := agg.Compute(ctx, customers, orders)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ltv.ReplaceAll(ctx, lt.Rows); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) verifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Options{
		CustomerStore:    f.customers,
		OrderStore:       f.orders,
		TouchStore:       f.touches,
		AttributionStore: f.attribution,
		LtvStore:         f.ltv,
		Attribution:      attribution.DefaultConfig(),
		LTV:              ltv.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	return v
}

func TestVerifier_VerifyAll_Match(t *testing.T) {
	f := newFixture(t)

	report, err := f.verifier(t).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if !report.Match() {
		t.Errorf("expected match, got %v", report.Divergences)
	}
	if report.AttributionRows != 8 {
		t.Errorf("AttributionRows = %d, want 8", report.AttributionRows)
	}
	if report.LtvRows != 4 {
		t.Errorf("LtvRows = %d, want 4", report.LtvRows)
	}
}

func TestVerifier_VerifyAll_TamperedRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rows, err := f.attribution.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	tampered := make([]*domain.AttributionRow, len(rows))
	for i, r := range rows {
		c := *r
		if c.Model == domain.ModelLastClick {
			c.AttributedRevenue = dec("39.00")
		}
		tampered[i] = &c
	}
	if err := f.attribution.ReplaceAll(ctx, tampered); err != nil {
		t.Fatal(err)
	}

	report, err := f.verifier(t).VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if report.Match() {
		t.Fatal("expected divergences")
	}
	// conservation from the invariant check, revenue from the recompute diff
	if got := report.Count(TableAttribution); got != 2 {
		t.Errorf("attribution divergences = %d, want 2: %v", got, report.Divergences)
	}
	if got := report.Count(TableLtv); got != 0 {
		t.Errorf("ltv divergences = %d, want 0", got)
	}
}

func TestNewVerifier_Validation(t *testing.T) {
	f := newFixture(t)

	if _, err := NewVerifier(Options{}); err == nil {
		t.Error("expected error for missing stores")
	}

	_, err := NewVerifier(Options{
		CustomerStore:    f.customers,
		OrderStore:       f.orders,
		TouchStore:       f.touches,
		AttributionStore: f.attribution,
		LtvStore:         f.ltv,
		Attribution:      attribution.Config{WindowDays: 30, HalfLifeDays: 0},
		LTV:              ltv.DefaultConfig(),
	})
	if err == nil {
		t.Error("expected error for invalid attribution config")
	}
}
