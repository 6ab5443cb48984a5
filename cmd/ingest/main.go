// Package main loads the source CSVs into the source stores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/ingestion"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reload the source tables from the CSVs in data-dir",
		Long: `Reads the source CSVs from data-dir (events.csv is optional), assigns
surrogate ids in file order and replaces the source tables in one transaction.
The derived tables are cleared, so run the pipeline afterwards. Unknown
customers, channels or orders abort the load before anything is written.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.SignalContext(cmd.Context())
			defer cancel()

			env, err := app.Setup(cmd, "ingest")
			if err != nil {
				return err
			}
			defer env.Close()

			if env.Config.Sink == config.SinkMemory {
				env.Log.Warn("memory sink selected; ingested rows are discarded on exit")
			}

			ds, err := ingestion.ReadDir(env.Config.DataDir)
			if err != nil {
				return err
			}
			stores, err := env.OpenStores(ctx)
			if err != nil {
				return err
			}
			res, err := env.Ingest(ctx, stores, ds)
			if err != nil {
				return err
			}

			fmt.Printf("Ingested %d channels, %d customers, %d orders, %d touches, %d spend rows, %d events in %s\n",
				res.Channels, res.Customers, res.Orders, res.Touches, res.Spend, res.Events, res.Duration)
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
