package attribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"ltv-attribution-lab/internal/domain"
)

// Default model parameters.
const (
	DefaultWindowDays   = 30
	DefaultHalfLifeDays = 7.0

	// MaxWindowDays is the longest window representable as a time.Duration.
	MaxWindowDays = int(math.MaxInt64 / int64(Day))
)

// ErrInvalidConfig is returned by NewEngine for unusable parameters.
var ErrInvalidConfig = errors.New("invalid attribution config")

// Config holds attribution parameters.
type Config struct {
	WindowDays   int     // lookback window, inclusive on both ends
	HalfLifeDays float64 // time-decay half-life
	Workers      int     // >1 fans out over orders; output is unchanged
}

// DefaultConfig returns the default attribution parameters.
func DefaultConfig() Config {
	return Config{
		WindowDays:   DefaultWindowDays,
		HalfLifeDays: DefaultHalfLifeDays,
		Workers:      1,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.WindowDays < 0 {
		return fmt.Errorf("%w: window_days must be >= 0, got %d", ErrInvalidConfig, c.WindowDays)
	}
	if c.WindowDays > MaxWindowDays {
		return fmt.Errorf("%w: window_days must be <= %d, got %d", ErrInvalidConfig, MaxWindowDays, c.WindowDays)
	}
	if c.HalfLifeDays <= 0 {
		return fmt.Errorf("%w: half_life_days must be > 0, got %v", ErrInvalidConfig, c.HalfLifeDays)
	}
	return nil
}

// Window returns the lookback window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * Day
}

// Result holds the attribution table for one run.
type Result struct {
	Rows                 []*domain.AttributionRow
	OrdersCredited       int // orders with at least one touch in window
	OrdersWithoutTouches int // orders producing no rows; nil orders are skipped
}

// Engine computes fact_attribution from orders and touches.
// It holds no per-run state and may be reused.
type Engine struct {
	cfg        Config
	weightings []Weighting
}

// NewEngine creates an engine running the full model set.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		weightings: Weightings(cfg.HalfLifeDays),
	}, nil
}

// Compute attributes every order to the touches in its lookback window.
// Rows are emitted in order-iteration, then model, then per-model credit order;
// consumers must not depend on that order.
func (e *Engine) Compute(ctx context.Context, orders []*domain.Order, touches []*domain.Touch) (*Result, error) {
	ix := NewTouchIndex(touches)
	perOrder := make([][]*domain.AttributionRow, len(orders))

	if e.cfg.Workers > 1 && len(orders) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for i, o := range orders {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perOrder[i] = e.attributeOrder(ix, o)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("attribute orders: %w", err)
		}
	} else {
		for i, o := range orders {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("attribute orders: %w", err)
			}
			perOrder[i] = e.attributeOrder(ix, o)
		}
	}

	result := &Result{}
	for i, rows := range perOrder {
		if orders[i] == nil {
			continue
		}
		if len(rows) == 0 {
			result.OrdersWithoutTouches++
			continue
		}
		result.OrdersCredited++
		result.Rows = append(result.Rows, rows...)
	}
	return result, nil
}

// attributeOrder runs every model over one order's window.
func (e *Engine) attributeOrder(ix *TouchIndex, o *domain.Order) []*domain.AttributionRow {
	if o == nil {
		return nil
	}
	window := ix.Window(o.CustomerID, o.OrderTS, e.cfg.Window())
	if len(window) == 0 {
		return nil
	}

	rows := make([]*domain.AttributionRow, 0, 2*len(window)+2)
	for _, w := range e.weightings {
		for _, c := range w.Apply(window, o.OrderTS, o.Amount) {
			rows = append(rows, &domain.AttributionRow{
				OrderID:           o.OrderID,
				Model:             w.Model,
				ChannelID:         c.ChannelID,
				Weight:            c.Weight,
				AttributedRevenue: c.Revenue,
			})
		}
	}
	return rows
}
