package trigger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/go-github/v61/github"
)

// Event names with dedicated handling. Anything else goes through the
// generic ref mapping.
const (
	EventPush              = "push"
	EventPullRequest       = "pull_request"
	EventPullRequestTarget = "pull_request_target"
	EventCreate            = "create"
	EventDelete            = "delete"
	EventWorkflowDispatch  = "workflow_dispatch"
)

const (
	branchRefPrefix = "refs/heads/"
	tagRefPrefix    = "refs/tags/"
)

// Repository describes the remote a build would clone.
type Repository struct {
	Owner         string
	Name          string
	CloneURL      string
	SSHURL        string
	Private       bool
	DefaultBranch string
}

// Commit is one commit carried by the triggering event.
type Commit struct {
	SHA      string
	Message  string
	Added    []string
	Removed  []string
	Modified []string
}

// PullRequest carries the slice of pull request data option
// resolution needs.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	Action string

	// Mergeable mirrors GitHub's tri-state: nil means the merge ref
	// has not been computed yet and cannot be trusted.
	Mergeable *bool

	Draft   bool
	Author  string
	DiffURL string

	HeadRef  string
	HeadSHA  string
	HeadRepo *Repository
	BaseRef  string
	BaseRepo *Repository
}

// EventContext is the triggering event, decoded into the handful of
// fields the option resolver works from.
type EventContext struct {
	Name    string
	Ref     string
	HeadSHA string
	Deleted bool

	// Commits are the pushed commits in push order; HeadCommit is the
	// newest one. Both stay nil for events that carry no commit list.
	Commits    []Commit
	HeadCommit *Commit

	Repo        *Repository
	PullRequest *PullRequest
}

// LoadEvent reads the event the surrounding workflow run was triggered
// by, from the payload file GitHub Actions mounts for every run.
func LoadEvent() (*EventContext, error) {
	name := os.Getenv("GITHUB_EVENT_NAME")
	path := os.Getenv("GITHUB_EVENT_PATH")
	if name == "" || path == "" {
		return nil, configErrorf("no event payload found: GITHUB_EVENT_NAME and GITHUB_EVENT_PATH are not set")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("no event payload found: %s", err)
	}

	ev, err := ParseEvent(name, payload)
	if err != nil {
		return nil, err
	}

	// Manual and scheduled payloads often omit the ref and sha; the
	// runner environment always has them.
	if ev.Ref == "" {
		ev.Ref = os.Getenv("GITHUB_REF")
	}
	if ev.HeadSHA == "" {
		ev.HeadSHA = os.Getenv("GITHUB_SHA")
	}
	return ev, nil
}

// ParseEvent decodes a GitHub event payload into an EventContext.
func ParseEvent(name string, payload []byte) (*EventContext, error) {
	event, err := github.ParseWebHook(name, payload)
	if err != nil {
		// Actions-only triggers (schedule among them) are not in the
		// webhook catalog; their payloads still follow the same shape.
		return genericEvent(name, payload)
	}

	ev := &EventContext{Name: name}
	switch event := event.(type) {
	case *github.PushEvent:
		ev.Ref = event.GetRef()
		ev.HeadSHA = event.GetAfter()
		ev.Deleted = event.GetDeleted()
		ev.Repo = pushRepository(event.GetRepo())
		ev.HeadCommit = commit(event.GetHeadCommit())
		for _, c := range event.Commits {
			if c == nil {
				continue
			}
			ev.Commits = append(ev.Commits, *commit(c))
		}
	case *github.PullRequestEvent:
		ev.PullRequest = pullRequest(event.GetAction(), event.GetNumber(), event.GetPullRequest())
		ev.Repo = repository(event.GetRepo())
	case *github.PullRequestTargetEvent:
		ev.PullRequest = pullRequest(event.GetAction(), event.GetNumber(), event.GetPullRequest())
		ev.Repo = repository(event.GetRepo())
	case *github.CreateEvent:
		ev.Ref = qualifiedRef(event.GetRef(), event.GetRefType())
		ev.Repo = repository(event.GetRepo())
	case *github.DeleteEvent:
		ev.Ref = qualifiedRef(event.GetRef(), event.GetRefType())
		ev.Deleted = true
		ev.Repo = repository(event.GetRepo())
	case *github.WorkflowDispatchEvent:
		ev.Ref = event.GetRef()
		ev.Repo = repository(event.GetRepo())
	default:
		return genericEvent(name, payload)
	}

	if ev.PullRequest != nil {
		// Mirror what the runner exposes for pull request runs: the ref
		// names the synthetic merge ref, the sha is the head commit.
		ev.Ref = fmt.Sprintf("refs/pull/%d/merge", ev.PullRequest.Number)
		ev.HeadSHA = ev.PullRequest.HeadSHA
	}
	return ev, nil
}

// genericEvent covers events without dedicated handling. Most carry
// the repository and, when ref-related, a ref plus head sha.
func genericEvent(name string, payload []byte) (*EventContext, error) {
	var generic struct {
		Ref        string             `json:"ref"`
		After      string             `json:"after"`
		Repository *github.Repository `json:"repository"`
	}
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, fmt.Errorf("could not parse %s payload: %w", name, err)
	}
	return &EventContext{
		Name:    name,
		Ref:     generic.Ref,
		HeadSHA: generic.After,
		Repo:    repository(generic.Repository),
	}, nil
}

func pullRequest(action string, number int, pr *github.PullRequest) *PullRequest {
	if number == 0 {
		number = pr.GetNumber()
	}
	return &PullRequest{
		Number:    number,
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Action:    action,
		Mergeable: pr.Mergeable,
		Draft:     pr.GetDraft(),
		Author:    pr.GetUser().GetLogin(),
		DiffURL:   pr.GetDiffURL(),
		HeadRef:   pr.GetHead().GetRef(),
		HeadSHA:   pr.GetHead().GetSHA(),
		HeadRepo:  repository(pr.GetHead().GetRepo()),
		BaseRef:   pr.GetBase().GetRef(),
		BaseRepo:  repository(pr.GetBase().GetRepo()),
	}
}

func repository(repo *github.Repository) *Repository {
	if repo == nil {
		return nil
	}
	return &Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		CloneURL:      repo.GetCloneURL(),
		SSHURL:        repo.GetSSHURL(),
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
	}
}

// pushRepository exists because push payloads use their own repository
// type with the owner nested differently.
func pushRepository(repo *github.PushEventRepository) *Repository {
	if repo == nil {
		return nil
	}
	return &Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		CloneURL:      repo.GetCloneURL(),
		SSHURL:        repo.GetSSHURL(),
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
	}
}

func commit(c *github.HeadCommit) *Commit {
	if c == nil {
		return nil
	}
	return &Commit{
		SHA:      c.GetID(),
		Message:  c.GetMessage(),
		Added:    c.Added,
		Removed:  c.Removed,
		Modified: c.Modified,
	}
}

// qualifiedRef rebuilds the full ref name create/delete payloads split
// into ref plus ref_type.
func qualifiedRef(ref, refType string) string {
	switch refType {
	case "branch":
		return branchRefPrefix + ref
	case "tag":
		return tagRefPrefix + ref
	}
	return ref
}
