package main

import (
	"github.com/spf13/cobra"
)

// newCheckCommand creates the check command, which validates feed
// configurations without running any lifecycle events.
func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate feed configurations without executing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initializeApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			return a.runner.RunAll(ctx)
		},
	}
}
