// Package main is the conveyor-trigger CLI: it reads the CI event it
// runs inside of and turns it into a Conveyor build.
package main

import (
	"log/slog"
	"os"

	"github.com/conveyorci/trigger/trigger"
)

func main() {
	if err := Execute(); err != nil {
		if trigger.IsConfigError(err) {
			slog.Error("invalid trigger configuration", slog.String("error", err.Error()))
		} else {
			slog.Error("trigger failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
