package trigger

import (
	"fmt"
	"os"
	"strings"
)

// SetActionOutput appends a step output in the format GitHub Actions
// reads back from $GITHUB_OUTPUT. Outside of Actions it is a no-op.
func SetActionOutput(name, value string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	if strings.Contains(value, "\n") {
		_, err = fmt.Fprintf(f, "%s<<EOF\n%s\nEOF\n", name, value)
	} else {
		_, err = fmt.Fprintf(f, "%s=%s\n", name, value)
	}
	return err
}
