// Package main applies the embedded PostgreSQL and ClickHouse migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/app"
	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/storage/migrations"
	"ltv-attribution-lab/internal/storage/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Create the warehouse tables",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.SignalContext(cmd.Context())
			defer cancel()

			env, err := app.Setup(cmd, "migrate")
			if err != nil {
				return err
			}
			defer env.Close()
			cfg := env.Config

			runPostgres := target == config.SinkPostgres || target == "all"
			runClickHouse := target == config.SinkClickHouse || target == "all"
			if !runPostgres && !runClickHouse {
				return fmt.Errorf("unknown --target %q (want postgres, clickhouse or all)", target)
			}

			if runPostgres {
				if cfg.Postgres.DSN == "" {
					return fmt.Errorf("postgres.dsn is required")
				}
				pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pool.Close()
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					return err
				}
				env.Log.Info("postgres migrations applied", "files", applied)
			}

			if runClickHouse {
				if cfg.ClickHouse.DSN == "" {
					return fmt.Errorf("clickhouse.dsn is required")
				}
				conn, applied, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
				if err != nil {
					return err
				}
				_ = conn.Close()
				env.Log.Info("clickhouse migrations applied", "files", applied)
			}

			fmt.Println("Migrations complete")
			return nil
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&target, "target", "all", "database to migrate: postgres, clickhouse or all")
	return cmd
}
