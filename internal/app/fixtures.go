package app

import (
	"context"
	"fmt"

	"ltv-attribution-lab/internal/ingestion"
	"ltv-attribution-lab/internal/synth"
)

// LoadFixtures generates a synthetic dataset and ingests it into s.
func (e *Env) LoadFixtures(ctx context.Context, s *Stores, cfg synth.Config) (*ingestion.IngestResult, error) {
	ds, err := synth.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("generate fixtures: %w", err)
	}
	return e.Ingest(ctx, s, ds)
}

// Ingest replaces the source tables of s with ds. The derived tables of the
// same backend are cleared.
func (e *Env) Ingest(ctx context.Context, s *Stores, ds *ingestion.Dataset) (*ingestion.IngestResult, error) {
	m, err := ingestion.NewManager(ingestion.ManagerOptions{
		Loader:  s.Loader,
		Logger:  e.Log.Named("ingest"),
		Metrics: e.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return m.Ingest(ctx, ds)
}
