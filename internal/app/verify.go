package app

import (
	"context"

	"ltv-attribution-lab/internal/verification"
)

// Verify recomputes the derived tables from the stores' sources using the
// configured parameters and compares them with what is stored.
func (e *Env) Verify(ctx context.Context, s *Stores) (*verification.Report, error) {
	v, err := verification.NewVerifier(verification.Options{
		CustomerStore:    s.Customers,
		OrderStore:       s.Orders,
		TouchStore:       s.Touches,
		AttributionStore: s.Attribution,
		LtvStore:         s.Ltv,
		Attribution:      e.Config.EngineConfig(),
		LTV:              e.Config.LtvConfig(),
	})
	if err != nil {
		return nil, err
	}
	report, err := v.VerifyAll(ctx)
	if err != nil {
		return nil, err
	}
	if report.Match() {
		e.Log.Info("verification passed", "attribution_rows", report.AttributionRows, "ltv_rows", report.LtvRows)
	} else {
		e.Log.Warn("verification failed", "divergences", len(report.Divergences))
	}
	return report, nil
}
