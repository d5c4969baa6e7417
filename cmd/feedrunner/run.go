package main

import (
	"github.com/spf13/cobra"
)

// newRunCommand creates the run command, which executes all configured
// feeds, or the feeds named as arguments.
func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [feed...]",
		Short: "Execute configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initializeApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 0 {
				return a.runner.RunAll(ctx)
			}
			for _, name := range args {
				if err := a.runner.RunFeed(ctx, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
