package main

import "github.com/spf13/cobra"

// rootOptions holds the global flags shared by all commands.
type rootOptions struct {
	configPath string
	quiet      bool
	details    bool
	learn      bool
}

// newRootCommand creates the root command for the feedrunner CLI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "feedrunner",
		Short:         "feedrunner - pluggable feed processing pipeline",
		Long:          "Executes configured feeds through a prioritized plugin pipeline with persistent caching.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default feedrunner.yml in the working directory)")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	cmd.PersistentFlags().BoolVarP(&opts.details, "details", "d", false, "print per-entry, per-plugin trace lines")
	cmd.PersistentFlags().BoolVar(&opts.learn, "learn", false, "skip mutating events (download, output), only seed caches")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newDaemonCommand(opts))
	cmd.AddCommand(newFailedCommand(opts))

	return cmd
}
