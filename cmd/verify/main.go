// Package main checks the stored derived tables against a recomputation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify fact_attribution and fact_ltv_cohort",
		Long: `Recomputes attribution and cohort LTV from the source tables with the
configured parameters, checks the stored rows against their invariants and
reports every divergence. Exits non-zero when any check fails.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.SignalContext(cmd.Context())
			defer cancel()

			env, err := app.Setup(cmd, "verify")
			if err != nil {
				return err
			}
			defer env.Close()

			stores, err := env.OpenStores(ctx)
			if err != nil {
				return err
			}
			report, err := env.Verify(ctx, stores)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Verified %d attribution rows, %d LTV rows\n", report.AttributionRows, report.LtvRows)
			if report.Match() {
				fmt.Fprintln(out, "  OK")
				return nil
			}
			for i, d := range report.Divergences {
				if limit > 0 && i >= limit {
					fmt.Fprintf(out, "  ... %d more\n", len(report.Divergences)-limit)
					break
				}
				fmt.Fprintf(out, "  - %s\n", d)
			}
			return fmt.Errorf("%d divergences", len(report.Divergences))
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum divergences to print (0 prints all)")
	return cmd
}
