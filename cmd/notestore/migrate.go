package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Runs all pending migrations against the configured SQL store. The sqlite
store migrates itself when opened; postgres must be migrated before first use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			switch cfg.Store.Driver {
			case config.DriverPostgres:
				database, err := db.New(ctx, &cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer database.Close()
				if err := database.RunMigrations(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			case config.DriverSQLite:
				b, err := openBackend(ctx, cfg)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				b.close()
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "The %s store has no migrations.\n", cfg.Store.Driver)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully.")
			return nil
		},
	}
}
