// Package orchestrator coordinates one recomputation of the derived tables.
// Flow: load sources → compute attribution and LTV → replace derived tables → record run
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/domain"
	"ltv-attribution-lab/internal/idhash"
	"ltv-attribution-lab/internal/logger"
	"ltv-attribution-lab/internal/ltv"
	"ltv-attribution-lab/internal/observability"
	"ltv-attribution-lab/internal/storage"
)

// Table names used for logging and metrics.
const (
	TableAttribution = "fact_attribution"
	TableLtv         = "fact_ltv_cohort"
)

// Orchestrator coordinates the pipeline execution.
type Orchestrator struct {
	// Sources
	customerStore storage.CustomerStore
	orderStore    storage.OrderStore
	touchStore    storage.TouchStore

	// Sinks
	attributionStore storage.AttributionStore
	ltvStore         storage.LtvStore
	runLog           storage.RunLogStore
	sinkName         string

	engine     *attribution.Engine
	aggregator *ltv.Aggregator
	paramsHash string

	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	CustomerStore    storage.CustomerStore
	OrderStore       storage.OrderStore
	TouchStore       storage.TouchStore
	AttributionStore storage.AttributionStore
	LtvStore         storage.LtvStore

	// Optional run history; nil disables it.
	RunLog storage.RunLogStore

	// SinkName labels database metrics, e.g. "postgres". Defaults to "memory".
	SinkName string

	Attribution attribution.Config
	LTV         ltv.Config

	Logger  *logger.Logger
	Metrics *observability.Metrics
	Clock   func() time.Time
}

// New creates a new Orchestrator. It fails on invalid model parameters.
func New(opts Options) (*Orchestrator, error) {
	if opts.CustomerStore == nil || opts.OrderStore == nil || opts.TouchStore == nil ||
		opts.AttributionStore == nil || opts.LtvStore == nil {
		return nil, fmt.Errorf("orchestrator: source and sink stores are required")
	}

	engine, err := attribution.NewEngine(opts.Attribution)
	if err != nil {
		return nil, err
	}
	aggregator, err := ltv.NewAggregator(opts.LTV)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		customerStore:    opts.CustomerStore,
		orderStore:       opts.OrderStore,
		touchStore:       opts.TouchStore,
		attributionStore: opts.AttributionStore,
		ltvStore:         opts.LtvStore,
		runLog:           opts.RunLog,
		sinkName:         opts.SinkName,
		engine:           engine,
		aggregator:       aggregator,
		paramsHash:       idhash.ComputeParamsHash(opts.Attribution.WindowDays, opts.Attribution.HalfLifeDays, opts.LTV.Horizons),
		log:              opts.Logger,
		metrics:          opts.Metrics,
		now:              opts.Clock,
	}
	if o.sinkName == "" {
		o.sinkName = "memory"
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	return o, nil
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID      string
	ParamsHash string

	Customers int
	Orders    int
	Touches   int

	AttributionRows      int
	OrdersCredited       int
	OrdersWithoutTouches int
	LtvRows              int
	UnmatchedOrders      int

	// False when the result was empty and the existing table was kept.
	AttributionWritten bool
	LtvWritten         bool

	StartedAt time.Time
	Duration  time.Duration
}

type sources struct {
	customers []*domain.Customer
	orders    []*domain.Order
	touches   []*domain.Touch
}

// Run executes the full pipeline.
// Phases:
//  1. Load customers, orders and touches (concurrently)
//  2. Compute attribution and LTV (concurrently)
//  3. Replace fact_attribution, then fact_ltv_cohort; empty results are skipped
//  4. Record the run
//
// Any load failure aborts before a write. A failed replace leaves that table as it was.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.now()
	result := &RunResult{
		RunID:      idhash.ComputeRunID(started.UnixMilli(), o.paramsHash),
		ParamsHash: o.paramsHash,
		StartedAt:  started,
	}
	log := o.log.With("run_id", result.RunID[:12])

	// Phase 1: Load sources
	log.Info("phase 1: loading sources")
	src, err := timed(o, "load", func() (*sources, error) { return o.loadSources(ctx) })
	if err != nil {
		return nil, o.failRun(ctx, result, fmt.Errorf("phase 1 (load sources) failed: %w", err))
	}
	result.Customers, result.Orders, result.Touches = len(src.customers), len(src.orders), len(src.touches)
	log.Info("sources loaded", "customers", result.Customers, "orders", result.Orders, "touches", result.Touches)

	// Phase 2: Compute
	log.Info("phase 2: computing attribution and ltv")
	var (
		attrRes *attribution.Result
		ltvRes  *ltv.Result
	)
	_, err = timed(o, "compute", func() (struct{}, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r, err := o.engine.Compute(gctx, src.orders, src.touches)
			if err != nil {
				return fmt.Errorf("attribution: %w", err)
			}
			attrRes = r
			return nil
		})
		g.Go(func() error {
			r, err := o.aggregator.Compute(gctx, src.customers, src.orders)
			if err != nil {
				return fmt.Errorf("ltv: %w", err)
			}
			ltvRes = r
			return nil
		})
		return struct{}{}, g.Wait()
	})
	if err != nil {
		return nil, o.failRun(ctx, result, fmt.Errorf("phase 2 (compute) failed: %w", err))
	}

	result.AttributionRows = len(attrRes.Rows)
	result.OrdersCredited = attrRes.OrdersCredited
	result.OrdersWithoutTouches = attrRes.OrdersWithoutTouches
	result.LtvRows = len(ltvRes.Rows)
	result.UnmatchedOrders = ltvRes.UnmatchedOrders

	o.metrics.RecordRowsComputed(TableAttribution, result.AttributionRows)
	o.metrics.RecordRowsComputed(TableLtv, result.LtvRows)
	o.metrics.OrdersWithoutTouches.Set(float64(result.OrdersWithoutTouches))
	o.metrics.UnmatchedOrders.Set(float64(result.UnmatchedOrders))
	log.Info("computed",
		"attribution_rows", result.AttributionRows,
		"orders_credited", result.OrdersCredited,
		"orders_without_touches", result.OrdersWithoutTouches,
		"ltv_rows", result.LtvRows,
		"unmatched_orders", result.UnmatchedOrders,
	)
	if result.UnmatchedOrders > 0 {
		log.Warn("orders reference unknown customers", "count", result.UnmatchedOrders)
	}

	// Phase 3: Replace derived tables
	log.Info("phase 3: replacing derived tables")
	result.AttributionWritten, err = o.replace(ctx, log, TableAttribution, len(attrRes.Rows), func(ctx context.Context) error {
		return o.attributionStore.ReplaceAll(ctx, attrRes.Rows)
	})
	if err != nil {
		return nil, o.failRun(ctx, result, fmt.Errorf("phase 3 (replace %s) failed: %w", TableAttribution, err))
	}
	result.LtvWritten, err = o.replace(ctx, log, TableLtv, len(ltvRes.Rows), func(ctx context.Context) error {
		return o.ltvStore.ReplaceAll(ctx, ltvRes.Rows)
	})
	if err != nil {
		return nil, o.failRun(ctx, result, fmt.Errorf("phase 3 (replace %s) failed: %w", TableLtv, err))
	}

	// Phase 4: Record run
	result.Duration = o.now().Sub(started)
	o.recordRun(ctx, result, storage.RunStatusSuccess, "")
	o.metrics.RecordPipelineRun("pipeline", "success", result.Duration)
	o.metrics.MarkPipelineSuccess(o.now())

	log.Info("pipeline completed",
		"attribution_rows", result.AttributionRows,
		"ltv_rows", result.LtvRows,
		"duration", result.Duration,
	)
	return result, nil
}

// loadSources reads the three source tables concurrently.
func (o *Orchestrator) loadSources(ctx context.Context) (*sources, error) {
	src := &sources{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if src.customers, err = o.customerStore.GetAll(gctx); err != nil {
			return fmt.Errorf("customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if src.orders, err = o.orderStore.GetAll(gctx); err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if src.touches, err = o.touchStore.GetAll(gctx); err != nil {
			return fmt.Errorf("touches: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return src, nil
}

// replace runs one ReplaceAll unless the result is empty.
// An empty result keeps the existing table; it is never cleared.
func (o *Orchestrator) replace(ctx context.Context, log *logger.Logger, table string, n int, write func(context.Context) error) (bool, error) {
	if n == 0 {
		log.Info("no rows computed, keeping existing table", "table", table)
		o.metrics.RecordWriteSkipped(table)
		return false, nil
	}

	start := time.Now()
	err := write(ctx)
	o.metrics.RecordDBQuery(o.sinkName, "replace_"+table, time.Since(start), err)
	if err != nil {
		return false, err
	}
	o.metrics.RecordRowsWritten(table, n)
	log.Info("table replaced", "table", table, "rows", n, "duration", time.Since(start))
	return true, nil
}

// timed runs fn as a metrics phase.
func timed[T any](o *Orchestrator, phase string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	status := "success"
	if err != nil {
		status = "error"
	}
	o.metrics.RecordPipelineRun(phase, status, time.Since(start))
	return v, err
}

func (o *Orchestrator) failRun(ctx context.Context, result *RunResult, err error) error {
	result.Duration = o.now().Sub(result.StartedAt)
	o.metrics.RecordPipelineRun("pipeline", "error", result.Duration)
	o.log.Error("pipeline failed", "run_id", result.RunID[:12], "error", err)
	o.recordRun(ctx, result, storage.RunStatusFailed, err.Error())
	return err
}

// recordRun appends to the run log. Failures are logged, not returned.
func (o *Orchestrator) recordRun(ctx context.Context, result *RunResult, status, errMsg string) {
	if o.runLog == nil {
		return
	}
	rec := &storage.RunRecord{
		RunID:           result.RunID,
		ParamsHash:      result.ParamsHash,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.StartedAt.Add(result.Duration),
		Status:          status,
		AttributionRows: result.AttributionRows,
		LtvRows:         result.LtvRows,
		Error:           errMsg,
	}
	if err := o.runLog.Record(context.WithoutCancel(ctx), rec); err != nil {
		o.log.Warn("failed to record run", "run_id", result.RunID[:12], "error", err)
	}
}
