// Package main provides the pipeline entry point.
// Executes: load sources → attribution + LTV → replace derived tables → optional report
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/orchestrator"
	"ltv-attribution-lab/internal/reporting"
	"ltv-attribution-lab/internal/synth"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		useFixtures bool
		seed        uint64
		customers   int
		writeReport bool
		verify      bool
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Recompute fact_attribution and fact_ltv_cohort",
		Long: `Loads customers, orders and touches, computes multi-touch attribution
(last_click, first_click, linear, time_decay) and cohort LTV, and replaces the
derived tables. Empty results leave the existing tables untouched.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.SignalContext(cmd.Context())
			defer cancel()

			if useFixtures && !cmd.Flags().Changed("sink") {
				if err := cmd.Flags().Set("sink", config.SinkMemory); err != nil {
					return err
				}
			}

			env, err := app.Setup(cmd, "pipeline")
			if err != nil {
				return err
			}
			defer env.Close()

			stores, err := env.OpenStores(ctx)
			if err != nil {
				return err
			}

			if useFixtures {
				cfg := synth.DefaultConfig()
				cfg.Seed = seed
				cfg.Customers = customers
				res, err := env.LoadFixtures(ctx, stores, cfg)
				if err != nil {
					return err
				}
				env.Log.Info("fixtures loaded", "customers", res.Customers, "orders", res.Orders, "touches", res.Touches)
			}

			return run(ctx, env, stores, writeReport, verify)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&useFixtures, "use-fixtures", false, "run over a synthetic in-memory dataset")
	cmd.Flags().Uint64Var(&seed, "seed", synth.DefaultConfig().Seed, "fixture generator seed")
	cmd.Flags().IntVar(&customers, "customers", synth.DefaultConfig().Customers, "fixture customer count")
	cmd.Flags().BoolVar(&writeReport, "report", false, "write the report into output-dir after the run")
	cmd.Flags().BoolVar(&verify, "verify", false, "recompute and compare the stored tables after the run")
	return cmd
}

func run(ctx context.Context, env *app.Env, stores *app.Stores, writeReport, verify bool) error {
	orch, err := orchestrator.New(orchestrator.Options{
		CustomerStore:    stores.Customers,
		OrderStore:       stores.Orders,
		TouchStore:       stores.Touches,
		AttributionStore: stores.Attribution,
		LtvStore:         stores.Ltv,
		RunLog:           stores.RunLog,
		SinkName:         stores.SinkName,
		Attribution:      env.Config.EngineConfig(),
		LTV:              env.Config.LtvConfig(),
		Logger:           env.Log,
		Metrics:          env.Metrics,
	})
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline completed (run %s):\n", result.RunID[:12])
	fmt.Printf("  Customers: %d  Orders: %d  Touches: %d\n", result.Customers, result.Orders, result.Touches)
	fmt.Printf("  Attribution rows: %d (orders credited %d, without touches %d)\n",
		result.AttributionRows, result.OrdersCredited, result.OrdersWithoutTouches)
	fmt.Printf("  LTV rows: %d (unmatched orders %d)\n", result.LtvRows, result.UnmatchedOrders)

	if verify {
		vr, err := env.Verify(ctx, stores)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if !vr.Match() {
			return fmt.Errorf("verify: %d divergences, first: %s", len(vr.Divergences), vr.Divergences[0])
		}
		fmt.Println("  Verification: OK")
	}

	if !writeReport {
		return nil
	}
	report, err := reporting.NewGenerator(stores.Attribution, stores.Ltv, stores.Channels, stores.Spend).
		WithEvents(stores.Events).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	paths, err := reporting.WriteFiles(env.Config.OutputDir, report)
	if err != nil {
		return err
	}
	env.Metrics.RecordReportGenerated("files")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
	return nil
}
