package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newDaemonCommand creates the daemon command, which executes all feeds
// on a cron schedule until interrupted.
func newDaemonCommand(opts *rootOptions) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run feeds continuously on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := initializeApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			effective := schedule
			if effective == "" {
				effective = a.cfg.Daemon.Schedule
			}
			if effective == "" {
				return fmt.Errorf("no schedule given: use --schedule or set daemon.schedule in the config")
			}

			return a.runner.RunDaemon(ctx, effective)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule, e.g. \"*/30 * * * *\"")
	return cmd
}
