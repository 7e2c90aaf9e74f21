package trigger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ConfigError means the trigger cannot produce a valid build request
// from what it was given. It is fatal: the run stops before any call
// reaches Conveyor.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is trigger misconfiguration
// rather than an environmental failure.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Overrides are the user-supplied trigger parameters. Ref and Commit
// supersede what the event itself says; the rest selects what runs
// and how the run behaves.
type Overrides struct {
	// Ref is a branch name, tag name or fully qualified ref to build
	// instead of the event's own ref. A bare name counts as a branch.
	Ref string

	// Commit pins the build to a commit hash.
	Commit string

	// Exactly one of Workflow and Pipeline must be set.
	Workflow string
	Pipeline string

	// Listen keeps the trigger attached to the build until it
	// finishes. Workflows only.
	Listen bool

	// ForwardEnv lists environment variable names copied into the
	// build, in order.
	ForwardEnv []string

	SkipGitStatusReport bool
}

func (ov Overrides) validate() error {
	switch {
	case ov.Workflow == "" && ov.Pipeline == "":
		return configErrorf("specify either a workflow or a pipeline to run")
	case ov.Workflow != "" && ov.Pipeline != "":
		return configErrorf("workflow %q and pipeline %q are mutually exclusive", ov.Workflow, ov.Pipeline)
	case ov.Pipeline != "" && ov.Listen:
		return configErrorf("listen mode is not supported when triggering a pipeline")
	}
	return nil
}

func (ov Overrides) hasRefOverride() bool {
	return ov.Ref != "" || ov.Commit != ""
}

// Resolve turns the triggering event plus user overrides into the
// build parameters submitted to Conveyor.
//
// An explicit ref or commit override wins over pull request handling,
// which wins over the plain push mapping. app is the Conveyor-side
// record of the repository when known; without it override handling
// degrades to warnings instead of repository checks.
func Resolve(ev *EventContext, ov Overrides, app *AppDetails) (*BuildOptions, error) {
	if err := ov.validate(); err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, configErrorf("no event payload found")
	}

	if app != nil && ev.Repo != nil && !SameRepository(app.RepoURL, RepositoryURL(ev.Repo)) {
		slog.Warn("event repository does not match the Conveyor app",
			slog.String("app_repository", app.RepoURL),
			slog.String("event_repository", RepositoryURL(ev.Repo)))
	}

	var (
		partial PartialBuildOptions
		err     error
	)
	switch {
	case ov.hasRefOverride():
		partial, err = overrideTransform(ev, ov, app)
	case ev.PullRequest != nil:
		partial, err = pullRequestTransform(ev.PullRequest)
	default:
		partial, err = baseTransform(ev)
	}
	if err != nil {
		return nil, err
	}

	partial.Environments = append(partial.Environments, PassthroughEnvironments(ov.ForwardEnv)...)

	opts, err := partial.BuildOptions()
	if err != nil {
		return nil, err
	}
	opts.WorkflowID = ov.Workflow
	opts.PipelineID = ov.Pipeline
	opts.SkipGitStatusReport = ov.SkipGitStatusReport
	return opts, nil
}

// baseTransform maps a plain push-style event. The ref namespace
// decides whether the build targets a branch or a tag; merge refs and
// bare shas target neither.
func baseTransform(ev *EventContext) (PartialBuildOptions, error) {
	if ev.Deleted {
		return PartialBuildOptions{}, configErrorf("ref %s was deleted, there is nothing to build", ev.Ref)
	}

	partial := PartialBuildOptions{
		CommitHash:        ev.HeadSHA,
		BaseRepositoryURL: RepositoryURL(ev.Repo),
	}
	if ev.HeadCommit != nil {
		partial.CommitMessage = ev.HeadCommit.Message
	}

	switch {
	case strings.HasPrefix(ev.Ref, branchRefPrefix):
		partial.Branch = strings.TrimPrefix(ev.Ref, branchRefPrefix)
		for _, c := range eventCommits(ev) {
			partial.CommitMessages = append(partial.CommitMessages, c.Message)
			partial.CommitPaths = append(partial.CommitPaths, PathSet{
				Added:    c.Added,
				Removed:  c.Removed,
				Modified: c.Modified,
			})
		}
	case strings.HasPrefix(ev.Ref, tagRefPrefix):
		partial.Tag = strings.TrimPrefix(ev.Ref, tagRefPrefix)
	}

	return partial, nil
}

// eventCommits is the event's commit list in push order, falling back
// to the head commit when the event did not enumerate commits.
func eventCommits(ev *EventContext) []Commit {
	if len(ev.Commits) > 0 {
		return ev.Commits
	}
	if ev.HeadCommit != nil {
		return []Commit{*ev.HeadCommit}
	}
	return nil
}

func pullRequestTransform(pr *PullRequest) (PartialBuildOptions, error) {
	mergeBranch := fmt.Sprintf("pull/%d/merge", pr.Number)

	partial := PartialBuildOptions{
		PullRequestUnverifiedMergeBranch: mergeBranch,
		PullRequestHeadBranch:            fmt.Sprintf("pull/%d/head", pr.Number),
	}

	// An unknown mergeable state means GitHub has not computed the
	// merge ref yet; only a definitive yes makes it safe to hand out.
	if pr.Mergeable != nil {
		if !*pr.Mergeable {
			return PartialBuildOptions{}, configErrorf("pull request #%d is not mergeable", pr.Number)
		}
		partial.PullRequestMergeBranch = mergeBranch
	}

	partial.CommitMessage = pr.Title
	if pr.Body != "" {
		partial.CommitMessage = pr.Title + "\n\n" + pr.Body
	}

	partial.CommitHash = pr.HeadSHA
	partial.Branch = pr.HeadRef
	partial.BranchDest = pr.BaseRef
	if pr.HeadRepo != nil {
		partial.BranchRepoOwner = pr.HeadRepo.Owner
	}
	if pr.BaseRepo != nil {
		partial.BranchDestRepoOwner = pr.BaseRepo.Owner
	}

	partial.PullRequestID = pr.Number
	partial.HeadRepositoryURL = RepositoryURL(pr.HeadRepo)
	partial.PullRequestRepositoryURL = partial.HeadRepositoryURL
	partial.BaseRepositoryURL = RepositoryURL(pr.BaseRepo)
	partial.PullRequestAuthor = pr.Author
	partial.DiffURL = pr.DiffURL

	switch {
	case pr.Action == "ready_for_review":
		partial.PullRequestReadyState = ReadyStateConvertedToReadyForReview
	case pr.Draft:
		partial.PullRequestReadyState = ReadyStateDraft
	default:
		partial.PullRequestReadyState = ReadyStateReadyForReview
	}
	if pr.Draft {
		partial.Environments = append(partial.Environments, Environment{
			Name:  "GITHUB_PR_IS_DRAFT",
			Value: "true",
		})
	}

	return partial, nil
}

// overrideTransform builds options from the user-supplied ref and
// commit instead of the event. When the override turns out to name
// exactly the branch or tag the event delivered anyway, the event's
// richer commit metadata is kept.
func overrideTransform(ev *EventContext, ov Overrides, app *AppDetails) (PartialBuildOptions, error) {
	var partial PartialBuildOptions
	if app == nil {
		slog.Warn("overrides given without app details, skipping repository checks",
			slog.String("ref", ov.Ref),
			slog.String("commit", ov.Commit))
	} else {
		partial.BaseRepositoryURL = app.RepoURL
	}

	partial = partial.Override(parseRefOverride(ov.Ref))

	if app != nil {
		base, err := baseTransform(ev)
		if err == nil && sameTarget(partial, base) && SameRepository(app.RepoURL, RepositoryURL(ev.Repo)) {
			partial = base
		}
	}

	if ov.Commit != "" {
		if ov.Commit != ev.HeadSHA {
			// Building a different commit than the event head: the
			// event's messages and paths would describe the wrong
			// commit, so only the target survives.
			partial = PartialBuildOptions{
				Branch:            partial.Branch,
				Tag:               partial.Tag,
				CommitHash:        ov.Commit,
				BaseRepositoryURL: partial.BaseRepositoryURL,
			}
		} else if partial.CommitHash == "" {
			partial.CommitHash = ov.Commit
		}
	}

	return partial, nil
}

// parseRefOverride maps the override string onto a branch or tag. A
// bare name is taken as a branch, matching what users mean by
// "branch: main".
func parseRefOverride(ref string) PartialBuildOptions {
	switch {
	case ref == "":
		return PartialBuildOptions{}
	case strings.HasPrefix(ref, branchRefPrefix):
		return PartialBuildOptions{Branch: strings.TrimPrefix(ref, branchRefPrefix)}
	case strings.HasPrefix(ref, tagRefPrefix):
		return PartialBuildOptions{Tag: strings.TrimPrefix(ref, tagRefPrefix)}
	default:
		return PartialBuildOptions{Branch: ref}
	}
}

// sameTarget reports whether the override resolved to the branch or
// tag the event itself would have built.
func sameTarget(override, base PartialBuildOptions) bool {
	if override.Branch != "" {
		return override.Branch == base.Branch
	}
	if override.Tag != "" {
		return override.Tag == base.Tag
	}
	return false
}
