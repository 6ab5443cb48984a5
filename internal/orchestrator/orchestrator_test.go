package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/idhash"
	"ltv-attribution-lab/internal/ingestion"
	"ltv-attribution-lab/internal/ltv"
	"ltv-attribution-lab/internal/observability"
	"ltv-attribution-lab/internal/storage"
	"ltv-attribution-lab/internal/storage/memory"
	"ltv-attribution-lab/internal/synth"
)

var (
	signup  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	runTime = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
)

type testStores struct {
	customers   *memory.CustomerStore
	orders      *memory.OrderStore
	touches     *memory.TouchStore
	attribution *memory.AttributionStore
	ltv         *memory.LtvStore
	runLog      *memory.RunLogStore
}

func createTestStores() *testStores {
	return &testStores{
		customers:   memory.NewCustomerStore(),
		orders:      memory.NewOrderStore(),
		touches:     memory.NewTouchStore(),
		attribution: memory.NewAttributionStore(),
		ltv:         memory.NewLtvStore(),
		runLog:      memory.NewRunLogStore(),
	}
}

func (s *testStores) options(metrics *observability.Metrics) Options {
	return Options{
		CustomerStore:    s.customers,
		OrderStore:       s.orders,
		TouchStore:       s.touches,
		AttributionStore: s.attribution,
		LtvStore:         s.ltv,
		RunLog:           s.runLog,
		Attribution:      attribution.DefaultConfig(),
		LTV:              ltv.DefaultConfig(),
		Metrics:          metrics,
		Clock:            func() time.Time { return runTime },
	}
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func newMetrics() *observability.Metrics {
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

// seedExample loads one customer with two orders. Only the first order has
// touches inside its 30-day window.
func seedExample(t *testing.T, s *testStores) {
	t.Helper()
	ctx := context.Background()

	if err := s.customers.InsertBulk(ctx, []*domain.Customer{
		{CustomerID: 1, ExternalID: "C0001", SignupDate: signup, Country: "MX"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.orders.InsertBulk(ctx, []*domain.Order{
		{OrderID: 1, CustomerID: 1, OrderTS: signup.AddDate(0, 0, 10), Amount: decimal.RequireFromString("40.00")},
		{OrderID: 2, CustomerID: 1, OrderTS: signup.AddDate(0, 0, 59), Amount: decimal.RequireFromString("60.00")},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.touches.InsertBulk(ctx, []*domain.Touch{
		{TouchID: 1, CustomerID: 1, ChannelID: 1, EventTS: signup.Add(10 * time.Hour)},
		{TouchID: 2, CustomerID: 1, ChannelID: 2, EventTS: signup.AddDate(0, 0, 5)},
		{TouchID: 3, CustomerID: 1, ChannelID: 3, EventTS: signup.AddDate(0, 0, 9)},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestOrchestrator_Run_Example(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seedExample(t, stores)
	metrics := newMetrics()

	result, err := newTestOrchestrator(t, stores.options(metrics)).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 1 last + 1 first + 3 linear + 3 time-decay rows for order 1; none for order 2.
	if result.AttributionRows != 8 || result.OrdersCredited != 1 || result.OrdersWithoutTouches != 1 {
		t.Errorf("attribution result = %+v", result)
	}
	if result.LtvRows != 4 || result.UnmatchedOrders != 0 {
		t.Errorf("ltv result = %+v", result)
	}
	if !result.AttributionWritten || !result.LtvWritten {
		t.Errorf("expected both tables written: %+v", result)
	}

	rows, _ := stores.attribution.GetByOrderID(ctx, 1)
	if len(rows) != 8 {
		t.Errorf("expected 8 stored rows for order 1, got %d", len(rows))
	}
	none, _ := stores.attribution.GetByOrderID(ctx, 2)
	if len(none) != 0 {
		t.Errorf("order 2 has no touches in window, got %d rows", len(none))
	}

	want := map[int]string{30: "40", 60: "100", 90: "100", 180: "100"}
	for h, rev := range want {
		got, _ := stores.ltv.GetByHorizon(ctx, h)
		if len(got) != 1 || !got[0].Revenue.Equal(decimal.RequireFromString(rev)) {
			t.Errorf("horizon %d: got %+v, want revenue %s", h, got, rev)
		}
	}

	if got := testutil.ToFloat64(metrics.OrdersWithoutTouches); got != 1 {
		t.Errorf("orders_without_touches = %v", got)
	}
	if got := testutil.ToFloat64(metrics.RowsWritten.WithLabelValues(TableAttribution)); got != 8 {
		t.Errorf("rows_written{attribution} = %v", got)
	}
}

func TestOrchestrator_Run_RecordsRun(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seedExample(t, stores)

	result, err := newTestOrchestrator(t, stores.options(newMetrics())).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	cfg := attribution.DefaultConfig()
	wantHash := idhash.ComputeParamsHash(cfg.WindowDays, cfg.HalfLifeDays, ltv.DefaultConfig().Horizons)
	if result.ParamsHash != wantHash {
		t.Errorf("ParamsHash = %s, want %s", result.ParamsHash, wantHash)
	}
	if result.RunID != idhash.ComputeRunID(runTime.UnixMilli(), wantHash) {
		t.Errorf("unexpected RunID %s", result.RunID)
	}

	last, err := stores.runLog.GetLast(ctx)
	if err != nil {
		t.Fatalf("GetLast failed: %v", err)
	}
	if last.RunID != result.RunID || last.Status != storage.RunStatusSuccess {
		t.Errorf("run record = %+v", last)
	}
	if last.AttributionRows != 8 || last.LtvRows != 4 {
		t.Errorf("run record counts = %+v", last)
	}
}

func TestOrchestrator_Run_EmptyKeepsTables(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	metrics := newMetrics()

	// Tables from a previous run must survive an empty recomputation.
	prevAttr := []*domain.AttributionRow{
		{OrderID: 7, Model: domain.ModelLinear, ChannelID: 1, Weight: 1, AttributedRevenue: decimal.NewFromInt(5)},
	}
	prevLtv := []*domain.LtvRow{
		{CohortMonth: signup, CustomerID: 7, HorizonDays: 30, Revenue: decimal.NewFromInt(5)},
	}
	if err := stores.attribution.ReplaceAll(ctx, prevAttr); err != nil {
		t.Fatal(err)
	}
	if err := stores.ltv.ReplaceAll(ctx, prevLtv); err != nil {
		t.Fatal(err)
	}

	result, err := newTestOrchestrator(t, stores.options(metrics)).Run(ctx)
	if err != nil {
		t.Fatalf("empty input must succeed, got: %v", err)
	}
	if result.AttributionWritten || result.LtvWritten {
		t.Errorf("nothing should be written: %+v", result)
	}

	attr, _ := stores.attribution.GetAll(ctx)
	ltvRows, _ := stores.ltv.GetAll(ctx)
	if len(attr) != 1 || len(ltvRows) != 1 {
		t.Errorf("previous tables lost: %d attribution, %d ltv rows", len(attr), len(ltvRows))
	}
	if got := testutil.ToFloat64(metrics.WritesSkipped.WithLabelValues(TableLtv)); got != 1 {
		t.Errorf("writes_skipped{ltv} = %v", got)
	}
}

func TestOrchestrator_Run_OrdersWithoutTouches(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	if err := stores.customers.InsertBulk(ctx, []*domain.Customer{{CustomerID: 1, SignupDate: signup}}); err != nil {
		t.Fatal(err)
	}
	if err := stores.orders.InsertBulk(ctx, []*domain.Order{
		{OrderID: 1, CustomerID: 1, OrderTS: signup.AddDate(0, 0, 3), Amount: decimal.NewFromInt(10)},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := newTestOrchestrator(t, stores.options(newMetrics())).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// No attribution rows: the table is skipped, LTV is still written.
	if result.AttributionWritten || !result.LtvWritten {
		t.Errorf("unexpected writes: %+v", result)
	}
}

type failingOrderStore struct {
	*memory.OrderStore
}

func (failingOrderStore) GetAll(context.Context) ([]*domain.Order, error) {
	return nil, errors.New("connection refused")
}

func TestOrchestrator_Run_LoadFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seedExample(t, stores)

	opts := stores.options(newMetrics())
	opts.OrderStore = failingOrderStore{stores.orders}

	_, err := newTestOrchestrator(t, opts).Run(ctx)
	if err == nil {
		t.Fatal("expected load error")
	}

	attr, _ := stores.attribution.GetAll(ctx)
	if len(attr) != 0 {
		t.Errorf("nothing should be written on load failure, got %d rows", len(attr))
	}
	last, err := stores.runLog.GetLast(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.Status != storage.RunStatusFailed || last.Error == "" {
		t.Errorf("failed run not recorded: %+v", last)
	}
}

type failingLtvStore struct {
	*memory.LtvStore
}

func (failingLtvStore) ReplaceAll(context.Context, []*domain.LtvRow) error {
	return errors.New("disk full")
}

func TestOrchestrator_Run_WriteFailure(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seedExample(t, stores)
	metrics := newMetrics()

	opts := stores.options(metrics)
	opts.LtvStore = failingLtvStore{stores.ltv}
	opts.SinkName = "postgres"

	_, err := newTestOrchestrator(t, opts).Run(ctx)
	if err == nil {
		t.Fatal("expected write error")
	}
	if got := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("postgres", "replace_"+TableLtv)); got != 1 {
		t.Errorf("db errors = %v", got)
	}
	last, _ := stores.runLog.GetLast(ctx)
	if last == nil || last.Status != storage.RunStatusFailed {
		t.Errorf("failed run not recorded: %+v", last)
	}
}

func TestOrchestrator_Run_Idempotent(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()
	seedExample(t, stores)

	// Advance the clock so each run gets its own run_id.
	tick := runTime
	opts := stores.options(newMetrics())
	opts.Clock = func() time.Time { tick = tick.Add(time.Second); return tick }
	o := newTestOrchestrator(t, opts)

	if _, err := o.Run(ctx); err != nil {
		t.Fatal(err)
	}
	attr1, _ := stores.attribution.GetAll(ctx)
	ltv1, _ := stores.ltv.GetAll(ctx)

	if _, err := o.Run(ctx); err != nil {
		t.Fatal(err)
	}
	attr2, _ := stores.attribution.GetAll(ctx)
	ltv2, _ := stores.ltv.GetAll(ctx)

	if !reflect.DeepEqual(attr1, attr2) || !reflect.DeepEqual(ltv1, ltv2) {
		t.Error("recomputation over unchanged inputs changed the derived tables")
	}
	runs, _ := stores.runLog.List(ctx, 0)
	if len(runs) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(runs))
	}
}

func TestOrchestrator_Run_SyntheticDataset(t *testing.T) {
	ctx := context.Background()
	stores := createTestStores()

	cfg := synth.DefaultConfig()
	cfg.Customers = 40
	ds, err := synth.Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	loader := memory.NewSourceLoader(memory.NewChannelStore(), stores.customers, stores.orders,
		stores.touches, memory.NewSpendStore(), memory.NewEventStore())
	m, err := ingestion.NewManager(ingestion.ManagerOptions{Loader: loader, Metrics: newMetrics()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Ingest(ctx, ds); err != nil {
		t.Fatal(err)
	}

	opts := stores.options(newMetrics())
	opts.Attribution.Workers = 4
	result, err := newTestOrchestrator(t, opts).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Orders != len(ds.Orders) || result.AttributionRows == 0 || result.LtvRows == 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Per (order, model) attributed revenue stays within a cent per row of the order amount.
	orders, _ := stores.orders.GetAll(ctx)
	amounts := make(map[int64]decimal.Decimal, len(orders))
	for _, o := range orders {
		amounts[o.OrderID] = o.Amount
	}
	type key struct {
		order int64
		model domain.Model
	}
	sums := make(map[key]decimal.Decimal)
	counts := make(map[key]int)
	rows, _ := stores.attribution.GetAll(ctx)
	for _, r := range rows {
		k := key{r.OrderID, r.Model}
		sums[k] = sums[k].Add(r.AttributedRevenue)
		counts[k]++
	}
	for k, sum := range sums {
		tolerance := decimal.New(int64(counts[k]), -2)
		if sum.Sub(amounts[k.order]).Abs().GreaterThan(tolerance) {
			t.Errorf("order %d model %s: credited %s of %s", k.order, k.model, sum, amounts[k.order])
		}
	}

	// LTV never decreases with the horizon.
	byCustomer := make(map[int64]map[int]decimal.Decimal)
	ltvRows, _ := stores.ltv.GetAll(ctx)
	for _, r := range ltvRows {
		if byCustomer[r.CustomerID] == nil {
			byCustomer[r.CustomerID] = make(map[int]decimal.Decimal)
		}
		byCustomer[r.CustomerID][r.HorizonDays] = r.Revenue
	}
	horizons := ltv.DefaultConfig().Horizons
	for id, revs := range byCustomer {
		prev := decimal.Zero
		for _, h := range horizons {
			rev, ok := revs[h]
			if !ok {
				continue
			}
			if rev.LessThan(prev) {
				t.Errorf("customer %d: ltv at %d days %s < %s", id, h, rev, prev)
			}
			prev = rev
		}
	}
}

func TestNew_Validation(t *testing.T) {
	stores := createTestStores()

	opts := stores.options(newMetrics())
	opts.Attribution.HalfLifeDays = 0
	if _, err := New(opts); !errors.Is(err, attribution.ErrInvalidConfig) {
		t.Errorf("expected attribution.ErrInvalidConfig, got %v", err)
	}

	opts = stores.options(newMetrics())
	opts.LTV.Horizons = nil
	if _, err := New(opts); !errors.Is(err, ltv.ErrInvalidConfig) {
		t.Errorf("expected ltv.ErrInvalidConfig, got %v", err)
	}

	opts = stores.options(newMetrics())
	opts.LtvStore = nil
	if _, err := New(opts); err == nil {
		t.Error("expected error for missing sink")
	}
}
