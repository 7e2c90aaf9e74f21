package trigger

import "fmt"

// ReadyState describes how far along the review lifecycle a pull
// request is at trigger time.
type ReadyState string

const (
	ReadyStateDraft                     ReadyState = "draft"
	ReadyStateReadyForReview            ReadyState = "ready_for_review"
	ReadyStateConvertedToReadyForReview ReadyState = "converted_to_ready_for_review"
)

// Environment is a single variable handed to the triggered build.
type Environment struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	IsExpand bool   `json:"is_expand"`
}

// PathSet lists the files a single commit added, removed and modified.
type PathSet struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// BuildOptions is the build_params payload of a Conveyor build
// request. Field names are fixed by the API; everything is optional
// on the wire.
type BuildOptions struct {
	Branch         string   `json:"branch,omitempty"`
	Tag            string   `json:"tag,omitempty"`
	CommitHash     string   `json:"commit_hash,omitempty"`
	CommitMessage  string   `json:"commit_message,omitempty"`
	CommitMessages []string `json:"commit_messages,omitempty"`

	// CommitPaths carries one entry per commit, in push order, aligned
	// with CommitMessages.
	CommitPaths []PathSet `json:"commit_paths,omitempty"`

	BaseRepositoryURL string `json:"base_repository_url,omitempty"`
	HeadRepositoryURL string `json:"head_repository_url,omitempty"`

	BranchRepoOwner     string `json:"branch_repo_owner,omitempty"`
	BranchDest          string `json:"branch_dest,omitempty"`
	BranchDestRepoOwner string `json:"branch_dest_repo_owner,omitempty"`

	PullRequestID                    int        `json:"pull_request_id,omitempty"`
	PullRequestRepositoryURL         string     `json:"pull_request_repository_url,omitempty"`
	PullRequestMergeBranch           string     `json:"pull_request_merge_branch,omitempty"`
	PullRequestUnverifiedMergeBranch string     `json:"pull_request_unverified_merge_branch,omitempty"`
	PullRequestHeadBranch            string     `json:"pull_request_head_branch,omitempty"`
	PullRequestAuthor                string     `json:"pull_request_author,omitempty"`
	PullRequestReadyState            ReadyState `json:"pull_request_ready_state,omitempty"`
	DiffURL                          string     `json:"diff_url,omitempty"`

	WorkflowID          string        `json:"workflow_id,omitempty"`
	PipelineID          string        `json:"pipeline_id,omitempty"`
	SkipGitStatusReport bool          `json:"skip_git_status_report,omitempty"`
	Environments        []Environment `json:"environments,omitempty"`
}

// PartialBuildOptions is the resolver's working record. It mirrors the
// event-derived fields of BuildOptions with everything optional, so
// the precedence logic can combine candidates step by step instead of
// spreading untyped maps over each other.
type PartialBuildOptions struct {
	Branch         string
	Tag            string
	CommitHash     string
	CommitMessage  string
	CommitMessages []string
	CommitPaths    []PathSet

	BaseRepositoryURL string
	HeadRepositoryURL string

	BranchRepoOwner     string
	BranchDest          string
	BranchDestRepoOwner string

	PullRequestID                    int
	PullRequestRepositoryURL         string
	PullRequestMergeBranch           string
	PullRequestUnverifiedMergeBranch string
	PullRequestHeadBranch            string
	PullRequestAuthor                string
	PullRequestReadyState            ReadyState
	DiffURL                          string

	Environments []Environment
}

// Override returns p with every field that is set on o replaced by o's
// value. Setting a branch clears any tag and vice versa, so the two
// can never survive a merge together.
func (p PartialBuildOptions) Override(o PartialBuildOptions) PartialBuildOptions {
	if o.Branch != "" {
		p.Branch = o.Branch
		p.Tag = ""
	}
	if o.Tag != "" {
		p.Tag = o.Tag
		p.Branch = ""
	}
	if o.CommitHash != "" {
		p.CommitHash = o.CommitHash
	}
	if o.CommitMessage != "" {
		p.CommitMessage = o.CommitMessage
	}
	if len(o.CommitMessages) != 0 {
		p.CommitMessages = o.CommitMessages
	}
	if len(o.CommitPaths) != 0 {
		p.CommitPaths = o.CommitPaths
	}
	if o.BaseRepositoryURL != "" {
		p.BaseRepositoryURL = o.BaseRepositoryURL
	}
	if o.HeadRepositoryURL != "" {
		p.HeadRepositoryURL = o.HeadRepositoryURL
	}
	if o.BranchRepoOwner != "" {
		p.BranchRepoOwner = o.BranchRepoOwner
	}
	if o.BranchDest != "" {
		p.BranchDest = o.BranchDest
	}
	if o.BranchDestRepoOwner != "" {
		p.BranchDestRepoOwner = o.BranchDestRepoOwner
	}
	if o.PullRequestID != 0 {
		p.PullRequestID = o.PullRequestID
	}
	if o.PullRequestRepositoryURL != "" {
		p.PullRequestRepositoryURL = o.PullRequestRepositoryURL
	}
	if o.PullRequestMergeBranch != "" {
		p.PullRequestMergeBranch = o.PullRequestMergeBranch
	}
	if o.PullRequestUnverifiedMergeBranch != "" {
		p.PullRequestUnverifiedMergeBranch = o.PullRequestUnverifiedMergeBranch
	}
	if o.PullRequestHeadBranch != "" {
		p.PullRequestHeadBranch = o.PullRequestHeadBranch
	}
	if o.PullRequestAuthor != "" {
		p.PullRequestAuthor = o.PullRequestAuthor
	}
	if o.PullRequestReadyState != "" {
		p.PullRequestReadyState = o.PullRequestReadyState
	}
	if o.DiffURL != "" {
		p.DiffURL = o.DiffURL
	}
	if len(o.Environments) != 0 {
		p.Environments = o.Environments
	}
	return p
}

// BuildOptions seals the partial into the immutable payload record.
// It fails when the branch/tag exclusion was broken, which no
// transform should be able to do.
func (p PartialBuildOptions) BuildOptions() (*BuildOptions, error) {
	if p.Branch != "" && p.Tag != "" {
		return nil, fmt.Errorf("branch %q and tag %q are mutually exclusive", p.Branch, p.Tag)
	}
	return &BuildOptions{
		Branch:                           p.Branch,
		Tag:                              p.Tag,
		CommitHash:                       p.CommitHash,
		CommitMessage:                    p.CommitMessage,
		CommitMessages:                   p.CommitMessages,
		CommitPaths:                      p.CommitPaths,
		BaseRepositoryURL:                p.BaseRepositoryURL,
		HeadRepositoryURL:                p.HeadRepositoryURL,
		BranchRepoOwner:                  p.BranchRepoOwner,
		BranchDest:                       p.BranchDest,
		BranchDestRepoOwner:              p.BranchDestRepoOwner,
		PullRequestID:                    p.PullRequestID,
		PullRequestRepositoryURL:         p.PullRequestRepositoryURL,
		PullRequestMergeBranch:           p.PullRequestMergeBranch,
		PullRequestUnverifiedMergeBranch: p.PullRequestUnverifiedMergeBranch,
		PullRequestHeadBranch:            p.PullRequestHeadBranch,
		PullRequestAuthor:                p.PullRequestAuthor,
		PullRequestReadyState:            p.PullRequestReadyState,
		DiffURL:                          p.DiffURL,
		Environments:                     p.Environments,
	}, nil
}
