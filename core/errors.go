package core

import (
	"fmt"
	"strings"
)

// ChildProcessError is returned when the runtime exits with a non-zero status or is terminated by the launcher.
type ChildProcessError struct {
	// Command is the full command line, starting with the runtime binary.
	Command []string
	// Output is the child's standard error, or its standard output if nothing was written to standard error.
	Output string
	// ExitCode is the child's exit status, or -1 if it was terminated by a signal.
	ExitCode int
	// Killed is set when the child was terminated by one of the launcher's termination hooks.
	Killed bool
}

func (e *ChildProcessError) Error() string {
	return fmt.Sprintf("command '%s' failed\n%s", strings.Join(e.Command, " "), e.Output)
}

// StatusCode returns the exit status the launcher should exit with to mirror the child.
func (e *ChildProcessError) StatusCode() int {
	if e.ExitCode > 0 {
		return e.ExitCode
	}
	return 1
}

// diagnostic picks the text that best explains a failure. Some tools only report errors on standard output.
func diagnostic(stdout, stderr string) string {
	if len(stderr) > 0 {
		return stderr
	}
	return stdout
}
