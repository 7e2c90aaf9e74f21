package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/conveyorci/trigger/trigger"
)

// Set via -ldflags "-X main.commit=...". The version itself lives in
// the trigger package so the API client can report it too.
var commit = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("conveyor-trigger %s (%s, %s)\n", trigger.Version, commit, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
