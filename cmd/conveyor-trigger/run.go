package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/conveyorci/trigger/trigger"
)

var (
	inputs       trigger.Inputs
	pollInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve the current CI event and trigger a build",
	Long: `Resolve the event this job was started by into build parameters and
submit them to Conveyor. Inside GitHub Actions the event comes from the
runner environment; anywhere else it is synthesized from the local
checkout. Flags win over action inputs, which win over the repository
config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrigger(cmd.Context(), inputs)
	},
}

func runTrigger(ctx context.Context, in trigger.Inputs) error {
	if err := in.Load(); err != nil {
		return err
	}

	var (
		ev  *trigger.EventContext
		err error
	)
	if os.Getenv("GITHUB_EVENT_NAME") != "" {
		ev, err = trigger.LoadEvent()
	} else {
		ev, err = trigger.LocalEvent(in.RepoDir)
	}
	if err != nil {
		return err
	}
	slog.Debug("event loaded",
		slog.String("event", ev.Name),
		slog.String("ref", ev.Ref),
		slog.String("sha", ev.HeadSHA))

	if !trigger.ShouldTrigger(ev, in.TriggerPaths) {
		slog.Info("no file matched the trigger paths, skipping build")
		return trigger.SetActionOutput("build_skipped", "true")
	}

	client := trigger.NewClient(in.APIURL, in.Token)

	var app *trigger.AppDetails
	switch {
	case in.DryRun:
		// Dry runs stay off the network; the origin remote is a good
		// enough stand-in for the app record.
		if app, err = trigger.LocalAppDetails(in.RepoDir); err != nil {
			slog.Debug("no app details available", slog.String("error", err.Error()))
			app = nil
		}
	case in.AppSlug != "" && in.Token != "":
		if app, err = client.App(ctx, in.AppSlug); err != nil {
			return err
		}
	}

	opts, err := trigger.Resolve(ev, in.Overrides, app)
	if err != nil {
		return err
	}

	if in.DryRun {
		payload, err := json.MarshalIndent(opts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(payload))
		return nil
	}

	if in.AppSlug == "" || in.Token == "" {
		return &trigger.ConfigError{Reason: "an app slug and an API token are required to trigger builds"}
	}

	build, err := client.TriggerBuild(ctx, in.AppSlug, opts)
	if err != nil {
		return err
	}
	slog.Info("build triggered",
		slog.String("build", build.Slug),
		slog.Int("number", build.Number),
		slog.String("url", build.URL))

	if err := trigger.SetActionOutput("build_slug", build.Slug); err != nil {
		return err
	}
	if err := trigger.SetActionOutput("build_number", strconv.Itoa(build.Number)); err != nil {
		return err
	}
	if err := trigger.SetActionOutput("build_url", build.URL); err != nil {
		return err
	}

	if !in.Overrides.Listen {
		return nil
	}

	status, err := client.FollowBuild(ctx, in.AppSlug, build.Slug, os.Stdout, pollInterval)
	if err != nil {
		return err
	}
	if err := trigger.SetActionOutput("build_status", status); err != nil {
		return err
	}
	if status != trigger.StatusSucceeded {
		return fmt.Errorf("build %s finished with status %s", build.Slug, status)
	}
	slog.Info("build succeeded", slog.String("build", build.Slug))
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&inputs.APIURL, "api-url", "", "Conveyor API base URL")
	runCmd.Flags().StringVar(&inputs.Token, "token", "", "Conveyor API token")
	runCmd.Flags().StringVar(&inputs.AppSlug, "app", "", "Conveyor app slug")
	runCmd.Flags().StringVarP(&inputs.ConfigPath, "config", "c", "", "path to the trigger config file (default "+trigger.DefaultConfigPath+")")
	runCmd.Flags().StringVar(&inputs.RepoDir, "repo-dir", ".", "checkout to read when no CI event is present")
	runCmd.Flags().StringVar(&inputs.Overrides.Ref, "branch", "", "branch, tag or fully qualified ref to build instead of the event's")
	runCmd.Flags().StringVar(&inputs.Overrides.Commit, "commit", "", "commit hash to build instead of the event's")
	runCmd.Flags().StringVarP(&inputs.Overrides.Workflow, "workflow", "w", "", "workflow to run")
	runCmd.Flags().StringVarP(&inputs.Overrides.Pipeline, "pipeline", "p", "", "pipeline to run")
	runCmd.Flags().BoolVar(&inputs.Overrides.Listen, "listen", false, "stream the build log and wait for the result")
	runCmd.Flags().StringSliceVar(&inputs.Overrides.ForwardEnv, "forward-env", nil, "environment variables to copy into the build")
	runCmd.Flags().StringSliceVar(&inputs.TriggerPaths, "trigger-paths", nil, "glob patterns; only trigger when a changed file matches")
	runCmd.Flags().BoolVar(&inputs.Overrides.SkipGitStatusReport, "skip-git-status-report", false, "do not report the build status back to the commit")
	runCmd.Flags().BoolVar(&inputs.DryRun, "dry-run", false, "print the build request instead of submitting it")
	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", 3*time.Second, "status poll interval in listen mode")
}
