// Package main implements the entry point for the feedrunner CLI,
// which executes configured feeds through the plugin pipeline, checks
// feed configurations, and inspects the failed-entry log.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
