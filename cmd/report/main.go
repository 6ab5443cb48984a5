// Package main renders channel attribution and cohort LTV reports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/reporting"
)

// Output formats.
const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatFiles    = "files"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Summarize fact_attribution and fact_ltv_cohort",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case formatTable, formatMarkdown, formatFiles:
			default:
				return fmt.Errorf("unknown --format %q (want table, markdown or files)", format)
			}

			ctx, cancel := app.SignalContext(cmd.Context())
			defer cancel()

			env, err := app.Setup(cmd, "report")
			if err != nil {
				return err
			}
			defer env.Close()

			stores, err := env.OpenStores(ctx)
			if err != nil {
				return err
			}
			r, err := reporting.NewGenerator(stores.Attribution, stores.Ltv, stores.Channels, stores.Spend).
				WithEvents(stores.Events).Generate(ctx)
			if err != nil {
				return err
			}

			switch format {
			case formatTable:
				reporting.RenderTables(cmd.OutOrStdout(), r)
			case formatMarkdown:
				fmt.Fprint(cmd.OutOrStdout(), reporting.RenderMarkdown(r))
			case formatFiles:
				paths, err := reporting.WriteFiles(env.Config.OutputDir, r)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
				}
			}
			env.Metrics.RecordReportGenerated(format)
			return nil
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, markdown or files")
	return cmd
}
