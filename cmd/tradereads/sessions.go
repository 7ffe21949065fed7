package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tradereads/tradereads-api/internal/task"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain refresh-token sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete every expired session once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			app, err := newApplication(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.cleanup()

			n, err := task.NewSessionSweepJob(app.sessions, nil).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", n)
			return nil
		},
	})
	return cmd
}
