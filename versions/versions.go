// Package versions parses the version reported by the bundled runtime and checks it against a minimum.
package versions

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Parse extracts the runtime version from the output of `node --version`, e.g. "v20.11.1\n".
func Parse(output string) (*version.Version, error) {
	line := strings.TrimSpace(output)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return nil, fmt.Errorf("runtime did not report a version")
	}
	v, err := version.NewVersion(line)
	if err != nil {
		return nil, fmt.Errorf("invalid runtime version %q: %v", line, err)
	}
	return v, nil
}

// CheckMinimum returns an error unless the version in output is at least minimum.
func CheckMinimum(output, minimum string) error {
	constraint, err := version.NewConstraint(">= " + strings.TrimPrefix(strings.TrimSpace(minimum), "v"))
	if err != nil {
		return fmt.Errorf("invalid minimum runtime version %q: %v", minimum, err)
	}

	v, err := Parse(output)
	if err != nil {
		return err
	}

	if !constraint.Check(v) {
		return fmt.Errorf("runtime version %s is older than the required minimum %s", v.Original(), minimum)
	}
	return nil
}
