package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newFailedCommand creates the failed command group for inspecting and
// clearing the persisted failed-entry log.
func newFailedCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Inspect the failed-entry log",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List failed entries recorded by previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initializeApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.runner.ListFailed(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed entries")
				return nil
			}
			for _, fe := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s | %s (%s)\n",
					fe.FailedAt.Format("2006-01-02 15:04"), fe.Title, fe.URL, fe.Reason)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the failed-entry log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initializeApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			return a.runner.ClearFailed(ctx)
		},
	})

	return cmd
}
