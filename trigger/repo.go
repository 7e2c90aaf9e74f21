package trigger

import "strings"

// RepositoryURL picks the clone URL a build should use: private
// repositories go over ssh, public ones over https.
func RepositoryURL(repo *Repository) string {
	if repo == nil {
		return ""
	}
	if repo.Private {
		return repo.SSHURL
	}
	return repo.CloneURL
}

// SameRepository reports whether two clone URLs point at the same
// remote. Transport, user info, a trailing ".git" and casing do not
// count; host and owner/name path do.
func SameRepository(a, b string) bool {
	na, nb := normalizeRemote(a), normalizeRemote(b)
	return na != "" && na == nb
}

// normalizeRemote reduces a clone URL to "host/owner/name":
//
//	git@github.com:acme/app.git   -> github.com/acme/app
//	https://github.com/Acme/App   -> github.com/acme/app
//	ssh://git@github.com/acme/app -> github.com/acme/app
func normalizeRemote(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
	} else if host, path, ok := strings.Cut(raw, ":"); ok && !strings.Contains(host, "/") {
		// scp-like syntax: [user@]host:owner/name.git
		raw = host + "/" + path
	}

	host, path, ok := strings.Cut(raw, "/")
	if !ok {
		return ""
	}
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}

	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if host == "" || path == "" {
		return ""
	}
	return strings.ToLower(host + "/" + path)
}
