package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tradereads/tradereads-api/internal/config"
	"github.com/tradereads/tradereads-api/internal/platform/postgres"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	for _, sub := range []struct {
		command string
		short   string
	}{
		{postgres.MigrateUp, "Apply all pending migrations"},
		{postgres.MigrateDown, "Roll back the most recent migration"},
		{postgres.MigrateStatus, "Show the status of every migration"},
		{postgres.MigrateVersion, "Print the current schema version"},
	} {
		command := sub.command
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := setup()
				if err != nil {
					return err
				}
				if cfg.Database.Driver != config.DriverPostgres {
					return fmt.Errorf("migrations require the %s driver, configured %q",
						config.DriverPostgres, cfg.Database.Driver)
				}
				db, err := postgres.Open(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				return postgres.Migrate(cmd.Context(), db, command, log)
			},
		})
	}
	return cmd
}
