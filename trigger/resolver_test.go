package trigger

import (
	"testing"

	"gotest.tools/v3/assert"
)

func mustEvent(t *testing.T, name string, payload []byte) *EventContext {
	t.Helper()
	ev, err := ParseEvent(name, payload)
	assert.NilError(t, err)
	return ev
}

func TestResolve_Validation(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)

	cases := []struct {
		name      string
		overrides Overrides
		want      string
	}{
		{
			name:      "nothing selected",
			overrides: Overrides{},
			want:      "specify either a workflow or a pipeline",
		},
		{
			name:      "both selected",
			overrides: Overrides{Workflow: "primary", Pipeline: "release"},
			want:      "mutually exclusive",
		},
		{
			name:      "listen on a pipeline",
			overrides: Overrides{Pipeline: "release", Listen: true},
			want:      "listen mode is not supported",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			_, err := Resolve(ev, test.overrides, nil)
			assert.ErrorContains(t, err, test.want)
			assert.Assert(t, IsConfigError(err))
		})
	}
}

func TestResolve_BranchPush(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)

	assert.Equal(t, opts.Branch, "main")
	assert.Equal(t, opts.Tag, "")
	assert.Equal(t, opts.CommitHash, "9049f1265b7d61be4a8904a9a27120d2064dab3b")
	assert.Equal(t, opts.CommitMessage, "Drop the legacy discount table")
	assert.DeepEqual(t, opts.CommitMessages, []string{
		"Extract the pricing rules into their own package",
		"Drop the legacy discount table",
	})
	assert.DeepEqual(t, opts.CommitPaths, []PathSet{
		{Added: []string{"pricing/rules.go"}, Removed: []string{}, Modified: []string{"go.mod", "main.go"}},
		{Added: []string{}, Removed: []string{"pricing/legacy.go"}, Modified: []string{"pricing/rules.go"}},
	})
	assert.Equal(t, opts.BaseRepositoryURL, "https://github.com/conveyorci/widget-factory.git")
	assert.Equal(t, opts.WorkflowID, "primary")
	assert.Equal(t, opts.PipelineID, "")
}

func TestResolve_TagPush(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPushTag)

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)

	assert.Equal(t, opts.Tag, "v1.4.0")
	assert.Equal(t, opts.Branch, "")
	assert.Equal(t, opts.CommitHash, "41d8f62c3a6f7a2a1f0d9b8c7e6d5c4b3a291807")
	assert.Equal(t, opts.CommitMessage, "Release v1.4.0")
	assert.Assert(t, opts.CommitMessages == nil)
	assert.Assert(t, opts.CommitPaths == nil)

	// The repository is private, so the build clones over ssh.
	assert.Equal(t, opts.BaseRepositoryURL, "git@github.com:conveyorci/fulfillment-api.git")
}

func TestResolve_DeletedRef(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPushDelete)

	_, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.ErrorContains(t, err, "was deleted")
	assert.Assert(t, IsConfigError(err))
}

func TestResolve_HeadCommitFallback(t *testing.T) {
	// Some pushes enumerate no commits; the head commit stands in.
	ev := &EventContext{
		Name:    EventPush,
		Ref:     "refs/heads/main",
		HeadSHA: "41d8f62c3a6f7a2a1f0d9b8c7e6d5c4b3a291807",
		HeadCommit: &Commit{
			SHA:      "41d8f62c3a6f7a2a1f0d9b8c7e6d5c4b3a291807",
			Message:  "Rebuild the index nightly",
			Modified: []string{"cron/index.go"},
		},
	}

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, opts.CommitMessages, []string{"Rebuild the index nightly"})
	assert.DeepEqual(t, opts.CommitPaths, []PathSet{{Modified: []string{"cron/index.go"}}})
}

func TestResolve_PullRequest(t *testing.T) {
	ev := mustEvent(t, EventPullRequest, ghPrOpened)

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)

	assert.DeepEqual(t, opts, &BuildOptions{
		Branch:                           "volume-pricing",
		CommitHash:                       "f6f4ee1b8a8e05e5e1c9f0b2a452b2d0f7c9d7aa",
		CommitMessage:                    "Support tiered volume pricing\n\nAdds the tiered price breaks we discussed in #54.",
		BaseRepositoryURL:                "https://github.com/conveyorci/widget-factory.git",
		HeadRepositoryURL:                "https://github.com/tmartin-dev/widget-factory.git",
		BranchRepoOwner:                  "tmartin-dev",
		BranchDest:                       "main",
		BranchDestRepoOwner:              "conveyorci",
		PullRequestID:                    58,
		PullRequestRepositoryURL:         "https://github.com/tmartin-dev/widget-factory.git",
		PullRequestMergeBranch:           "pull/58/merge",
		PullRequestUnverifiedMergeBranch: "pull/58/merge",
		PullRequestHeadBranch:            "pull/58/head",
		PullRequestAuthor:                "tmartin-dev",
		PullRequestReadyState:            ReadyStateReadyForReview,
		DiffURL:                          "https://github.com/conveyorci/widget-factory/pull/58.diff",
		WorkflowID:                       "primary",
	})
}

func TestResolve_DraftPullRequest(t *testing.T) {
	ev := mustEvent(t, EventPullRequest, ghPrDraft)

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)

	assert.Equal(t, opts.PullRequestReadyState, ReadyStateDraft)

	// Unknown mergeability: the merge branch stays unverified.
	assert.Equal(t, opts.PullRequestMergeBranch, "")
	assert.Equal(t, opts.PullRequestUnverifiedMergeBranch, "pull/61/merge")

	// An empty body leaves the message as the bare title.
	assert.Equal(t, opts.CommitMessage, "Refresh the operator docs")

	assert.DeepEqual(t, opts.Environments, []Environment{
		{Name: "GITHUB_PR_IS_DRAFT", Value: "true"},
	})
}

func TestResolve_ReadyForReview(t *testing.T) {
	ev := mustEvent(t, EventPullRequest, ghPrReady)

	opts, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.NilError(t, err)

	assert.Equal(t, opts.PullRequestReadyState, ReadyStateConvertedToReadyForReview)
	assert.Equal(t, opts.PullRequestMergeBranch, "pull/61/merge")
	assert.Assert(t, opts.Environments == nil)
}

func TestResolve_UnmergeablePullRequest(t *testing.T) {
	ev := mustEvent(t, EventPullRequest, ghPrOpened)
	mergeable := false
	ev.PullRequest.Mergeable = &mergeable

	_, err := Resolve(ev, Overrides{Workflow: "primary"}, nil)
	assert.ErrorContains(t, err, "not mergeable")
	assert.Assert(t, IsConfigError(err))
}

func TestResolve_BranchOverride(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{
		Slug:    "widget-factory",
		RepoURL: "https://github.com/conveyorci/widget-factory.git",
	}

	opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: "hotfix-1"}, app)
	assert.NilError(t, err)

	// A different branch than the event's: no event metadata applies.
	assert.Equal(t, opts.Branch, "hotfix-1")
	assert.Equal(t, opts.CommitHash, "")
	assert.Equal(t, opts.CommitMessage, "")
	assert.Assert(t, opts.CommitMessages == nil)
	assert.Equal(t, opts.BaseRepositoryURL, app.RepoURL)
}

func TestResolve_TagOverride(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/widget-factory.git"}

	opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: "refs/tags/v2.0.0"}, app)
	assert.NilError(t, err)
	assert.Equal(t, opts.Tag, "v2.0.0")
	assert.Equal(t, opts.Branch, "")
}

func TestResolve_OverrideCollapse(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "git@github.com:conveyorci/widget-factory.git"}

	cases := []struct {
		name string
		ref  string
	}{
		{"bare branch name", "main"},
		{"fully qualified", "refs/heads/main"},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: test.ref}, app)
			assert.NilError(t, err)

			// The override names what the event delivered anyway, so
			// the event's commit metadata survives.
			assert.Equal(t, opts.Branch, "main")
			assert.Equal(t, opts.CommitHash, "9049f1265b7d61be4a8904a9a27120d2064dab3b")
			assert.Equal(t, len(opts.CommitMessages), 2)
			assert.Equal(t, opts.BaseRepositoryURL, "https://github.com/conveyorci/widget-factory.git")
		})
	}
}

func TestResolve_OverrideCollapse_RepoMismatch(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/other-app.git"}

	opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: "main"}, app)
	assert.NilError(t, err)

	// Same branch name, different repository: stay with the bare
	// override.
	assert.Equal(t, opts.Branch, "main")
	assert.Equal(t, opts.CommitHash, "")
	assert.Assert(t, opts.CommitMessages == nil)
	assert.Equal(t, opts.BaseRepositoryURL, app.RepoURL)
}

func TestResolve_CommitOverrideNarrows(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/widget-factory.git"}

	opts, err := Resolve(ev, Overrides{
		Workflow: "primary",
		Ref:      "main",
		Commit:   "2c0bd8efdf8b8b446ce1a5b29e6e5b2f2b6a9968",
	}, app)
	assert.NilError(t, err)

	// Pinning an older commit: the event's messages and paths would
	// describe the wrong commit, so only the target survives.
	assert.DeepEqual(t, opts, &BuildOptions{
		Branch:            "main",
		CommitHash:        "2c0bd8efdf8b8b446ce1a5b29e6e5b2f2b6a9968",
		BaseRepositoryURL: app.RepoURL,
		WorkflowID:        "primary",
	})
}

func TestResolve_CommitOverrideMatchesHead(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/widget-factory.git"}

	opts, err := Resolve(ev, Overrides{
		Workflow: "primary",
		Ref:      "main",
		Commit:   "9049f1265b7d61be4a8904a9a27120d2064dab3b",
	}, app)
	assert.NilError(t, err)

	assert.Equal(t, opts.CommitHash, "9049f1265b7d61be4a8904a9a27120d2064dab3b")
	assert.Equal(t, len(opts.CommitMessages), 2)
}

func TestResolve_CommitOverrideOnly(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/widget-factory.git"}

	opts, err := Resolve(ev, Overrides{
		Workflow: "primary",
		Commit:   "2c0bd8efdf8b8b446ce1a5b29e6e5b2f2b6a9968",
	}, app)
	assert.NilError(t, err)

	assert.DeepEqual(t, opts, &BuildOptions{
		CommitHash:        "2c0bd8efdf8b8b446ce1a5b29e6e5b2f2b6a9968",
		BaseRepositoryURL: app.RepoURL,
		WorkflowID:        "primary",
	})
}

func TestResolve_OverrideWithoutApp(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)

	opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: "main"}, nil)
	assert.NilError(t, err)

	// Without app details there is no repository to seed or compare
	// against, so the override stands alone.
	assert.Equal(t, opts.Branch, "main")
	assert.Equal(t, opts.BaseRepositoryURL, "")
	assert.Assert(t, opts.CommitMessages == nil)
}

func TestResolve_OverrideBeatsPullRequest(t *testing.T) {
	ev := mustEvent(t, EventPullRequest, ghPrOpened)
	app := &AppDetails{RepoURL: "https://github.com/conveyorci/widget-factory.git"}

	opts, err := Resolve(ev, Overrides{Workflow: "primary", Ref: "main"}, app)
	assert.NilError(t, err)

	assert.Equal(t, opts.Branch, "main")
	assert.Equal(t, opts.PullRequestID, 0)
	assert.Equal(t, opts.PullRequestUnverifiedMergeBranch, "")
	assert.Equal(t, opts.PullRequestReadyState, ReadyState(""))
}

func TestResolve_EnvironmentPassthrough(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "staging")
	t.Setenv("EMPTY_VAR", "")
	ev := mustEvent(t, EventPush, ghPush)

	opts, err := Resolve(ev, Overrides{
		Workflow:   "primary",
		ForwardEnv: []string{"DEPLOY_ENV", "MISSING_VAR", "EMPTY_VAR", "DEPLOY_ENV"},
	}, nil)
	assert.NilError(t, err)

	assert.DeepEqual(t, opts.Environments, []Environment{
		{Name: "DEPLOY_ENV", Value: "staging"},
		{Name: "EMPTY_VAR", Value: ""},
	})
}

func TestResolve_PassthroughAfterEventEnvironments(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "staging")
	ev := mustEvent(t, EventPullRequest, ghPrDraft)

	opts, err := Resolve(ev, Overrides{
		Workflow:   "primary",
		ForwardEnv: []string{"DEPLOY_ENV"},
	}, nil)
	assert.NilError(t, err)

	assert.DeepEqual(t, opts.Environments, []Environment{
		{Name: "GITHUB_PR_IS_DRAFT", Value: "true"},
		{Name: "DEPLOY_ENV", Value: "staging"},
	})
}

func TestResolve_PipelineSelection(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)

	opts, err := Resolve(ev, Overrides{Pipeline: "release"}, nil)
	assert.NilError(t, err)
	assert.Equal(t, opts.PipelineID, "release")
	assert.Equal(t, opts.WorkflowID, "")
}

func TestResolve_SkipGitStatusReport(t *testing.T) {
	ev := mustEvent(t, EventPush, ghPush)

	opts, err := Resolve(ev, Overrides{Workflow: "primary", SkipGitStatusReport: true}, nil)
	assert.NilError(t, err)
	assert.Equal(t, opts.SkipGitStatusReport, true)
}
