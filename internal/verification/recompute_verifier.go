package verification

import (
	"context"
	"errors"
	"fmt"

	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/ltv"
	"ltv-attribution-lab/internal/storage"
)

// Options contains the stores and parameters for creating a Verifier.
// Attribution and LTV must match the parameters of the run being verified.
type Options struct {
	CustomerStore    storage.CustomerStore
	OrderStore       storage.OrderStore
	TouchStore       storage.TouchStore
	AttributionStore storage.AttributionStore
	LtvStore         storage.LtvStore

	Attribution attribution.Config
	LTV         ltv.Config
}

// Verifier recomputes the derived tables from the sources and compares the
// result with what is stored.
type Verifier struct {
	customerStore    storage.CustomerStore
	orderStore       storage.OrderStore
	touchStore       storage.TouchStore
	attributionStore storage.AttributionStore
	ltvStore         storage.LtvStore

	engine     *attribution.Engine
	aggregator *ltv.Aggregator
}

// NewVerifier creates a Verifier. All stores are required.
func NewVerifier(opts Options) (*Verifier, error) {
	if opts.CustomerStore == nil || opts.OrderStore == nil || opts.TouchStore == nil ||
		opts.AttributionStore == nil || opts.LtvStore == nil {
		return nil, errors.New("verification: all stores are required")
	}
	engine, err := attribution.NewEngine(opts.Attribution)
	if err != nil {
		return nil, fmt.Errorf("verification: %w", err)
	}
	aggregator, err := ltv.NewAggregator(opts.LTV)
	if err != nil {
		return nil, fmt.Errorf("verification: %w", err)
	}
	return &Verifier{
		customerStore:    opts.CustomerStore,
		orderStore:       opts.OrderStore,
		touchStore:       opts.TouchStore,
		attributionStore: opts.AttributionStore,
		ltvStore:         opts.LtvStore,
		engine:           engine,
		aggregator:       aggregator,
	}, nil
}

// VerifyAll checks both stored tables. Store errors are returned; failed
// checks are reported as divergences.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	// 1. Load sources
	customers, err := v.customerStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	orders, err := v.orderStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	touches, err := v.touchStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load touches: %w", err)
	}

	// 2. Load stored tables
	storedAttr, err := v.attributionStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", TableAttribution, err)
	}
	storedLtv, err := v.ltvStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", TableLtv, err)
	}

	// 3. Recompute
	attrResult, err := v.engine.Compute(ctx, orders, touches)
	if err != nil {
		return nil, fmt.Errorf("recompute attribution: %w", err)
	}
	ltvResult, err := v.aggregator.Compute(ctx, customers, orders)
	if err != nil {
		return nil, fmt.Errorf("recompute ltv: %w", err)
	}

	// 4. Compare
	report := &Report{
		AttributionRows: len(storedAttr),
		LtvRows:         len(storedLtv),
	}
	report.Divergences = append(report.Divergences, CheckAttribution(storedAttr, orders)...)
	report.Divergences = append(report.Divergences, CheckLtv(storedLtv)...)
	report.Divergences = append(report.Divergences, CompareAttribution(storedAttr, attrResult.Rows)...)
	report.Divergences = append(report.Divergences, CompareLtv(storedLtv, ltvResult.Rows)...)
	return report, nil
}
