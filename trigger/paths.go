package trigger

import "github.com/bmatcuk/doublestar"

// Match reports whether any file matches any of the glob patterns.
// Patterns support doublestar globs ("services/**", "*.go").
func Match(files []string, patterns ...string) bool {
	for _, pattern := range patterns {
		for _, file := range files {
			match, err := doublestar.PathMatch(pattern, file)
			if err != nil {
				continue
			}
			if match {
				return true
			}
		}
	}
	return false
}

// ShouldTrigger applies the optional path gate: with no patterns every
// event triggers, otherwise at least one file touched by the event's
// commits has to match.
func ShouldTrigger(ev *EventContext, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	var files []string
	for _, c := range eventCommits(ev) {
		files = append(files, c.Added...)
		files = append(files, c.Removed...)
		files = append(files, c.Modified...)
	}
	if len(files) == 0 {
		// Pull request payloads carry no per-commit file lists. With
		// nothing to check the gate stays open rather than silently
		// skipping every such build.
		return true
	}
	return Match(files, patterns...)
}
