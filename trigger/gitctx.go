package trigger

import (
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// LocalEvent synthesizes an EventContext from the checkout at dir, for
// runs outside any CI event. The result looks like a single-commit
// push of HEAD.
func LocalEvent(dir string) (*EventContext, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("could not open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("could not resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("could not read HEAD commit: %w", err)
	}

	ev := &EventContext{
		Name:    EventPush,
		HeadSHA: head.Hash().String(),
	}
	if head.Name().IsBranch() {
		ev.Ref = head.Name().String()
	}

	hc := Commit{
		SHA:     commit.Hash.String(),
		Message: strings.TrimRight(commit.Message, "\n"),
	}
	hc.Added, hc.Removed, hc.Modified, err = commitChanges(commit)
	if err != nil {
		return nil, fmt.Errorf("could not diff HEAD commit: %w", err)
	}
	ev.HeadCommit = &hc
	ev.Commits = []Commit{hc}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			ev.Repo = remoteRepository(urls[0])
		}
	}

	return ev, nil
}

// LocalAppDetails approximates the app record from the origin remote,
// for dry runs without Conveyor API access.
func LocalAppDetails(dir string) (*AppDetails, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("could not open repository at %s: %w", dir, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return nil, fmt.Errorf("could not resolve the %s remote: %w", git.DefaultRemoteName, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("remote %s has no URL", git.DefaultRemoteName)
	}

	details := &AppDetails{RepoURL: urls[0]}
	if r := remoteRepository(urls[0]); r != nil && r.Owner != "" {
		details.Title = r.Owner + "/" + r.Name
	}
	return details, nil
}

// commitChanges classifies the files the commit touched relative to
// its first parent. An initial commit counts everything as added.
func commitChanges(commit *object.Commit) (added, removed, modified []string, err error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, nil, err
	}

	var parentTree *object.Tree
	if parent, perr := commit.Parent(0); perr == nil {
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, nil, nil, err
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, change := range changes {
		action, aerr := change.Action()
		if aerr != nil {
			continue
		}
		switch action {
		case merkletrie.Insert:
			added = append(added, change.To.Name)
		case merkletrie.Delete:
			removed = append(removed, change.From.Name)
		case merkletrie.Modify:
			modified = append(modified, change.To.Name)
		}
	}
	return added, removed, modified, nil
}

// remoteRepository builds a repository descriptor from a bare clone
// URL. Visibility is unknown here, so the URL is carried on both
// transports and clone URL selection becomes a no-op.
func remoteRepository(cloneURL string) *Repository {
	repo := &Repository{CloneURL: cloneURL, SSHURL: cloneURL}
	if norm := normalizeRemote(cloneURL); norm != "" {
		segments := strings.Split(norm, "/")
		if len(segments) >= 3 {
			repo.Owner = segments[1]
			repo.Name = strings.Join(segments[2:], "/")
		}
	}
	return repo
}
