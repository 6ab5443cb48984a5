// Package main writes a deterministic synthetic dataset as source CSVs.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/ingestion"
	"ltv-attribution-lab/internal/synth"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := synth.DefaultConfig()
	var (
		seed      uint64
		customers int
		start     string
		end       string
	)

	cmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate synthetic channels, customers, orders, touches and spend CSVs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := app.Setup(cmd, "generate")
			if err != nil {
				return err
			}
			defer env.Close()

			cfg := defaults
			cfg.Seed = seed
			cfg.Customers = customers
			if cfg.Start, err = time.Parse(dateLayout, start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if cfg.End, err = time.Parse(dateLayout, end); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			ds, err := synth.Generate(cfg)
			if err != nil {
				return err
			}
			if err := ingestion.WriteDir(env.Config.DataDir, ds); err != nil {
				return err
			}

			env.Log.Info("dataset written",
				"dir", env.Config.DataDir,
				"customers", len(ds.Customers),
				"orders", len(ds.Orders),
				"touches", len(ds.Touches),
				"spend", len(ds.Spend),
				"events", len(ds.Events),
			)
			fmt.Printf("CSVs written to %s\n", env.Config.DataDir)
			return nil
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().Uint64Var(&seed, "seed", defaults.Seed, "generator seed")
	cmd.Flags().IntVar(&customers, "customers", defaults.Customers, "number of customers")
	cmd.Flags().StringVar(&start, "start", defaults.Start.Format(dateLayout), "first signup and spend date")
	cmd.Flags().StringVar(&end, "end", defaults.End.Format(dateLayout), "last signup and spend date")
	return cmd
}
