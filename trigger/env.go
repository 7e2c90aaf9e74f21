package trigger

import "os"

// PassthroughEnvironments copies the named variables out of the
// trigger's own environment so the build sees the same values. Names
// keep their requested order, duplicates collapse onto the first
// mention and names not present in the environment are skipped. The
// values are passed verbatim, so expansion stays off.
func PassthroughEnvironments(names []string) []Environment {
	return passthroughEnvironments(names, os.LookupEnv)
}

func passthroughEnvironments(names []string, lookup func(string) (string, bool)) []Environment {
	var envs []Environment
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		value, ok := lookup(name)
		if !ok {
			continue
		}
		envs = append(envs, Environment{Name: name, Value: value})
	}
	return envs
}
