// cmd/escposctl/migrate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"escpos-service/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the print job database schema",
	}

	withMigrator := func(run func(cmd *cobra.Command, m *database.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := database.Connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return run(cmd, database.NewMigrator(db, logger))
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *database.Migrator) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *database.Migrator) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete print jobs older than the configured retention",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *database.Migrator) error {
				if cfg.Database.JobsRetention <= 0 {
					return fmt.Errorf("database.jobs_retention is not set")
				}
				removed, err := m.RunCleanup(cfg.Database.JobsRetention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d jobs\n", removed)
				return nil
			}),
		},
	)
	return cmd
}
