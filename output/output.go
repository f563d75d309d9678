// Package output decides whether captured child output is also echoed live to the launcher's own streams.
package output

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nodeshim/nodeshim/config"
)

// EchoEnv names the config value controlling echoing: yes, no or auto (the default).
const EchoEnv = "NODESHIM_ECHO_OUTPUT"

// isTerminal may be replaced in tests.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Enabled returns whether child output should be echoed while it is captured.
func Enabled(config config.Config) bool {
	switch strings.ToLower(config.Get(EchoEnv)) {
	case "yes", "y", "true", "1":
		return true
	case "no", "n", "false", "0":
		return false
	}
	// auto: only echo when a person is watching.
	return isTerminal(os.Stdout)
}

// Writer returns w, or a writer that also copies everything to echo when echoing is enabled.
func Writer(w, echo io.Writer, config config.Config) io.Writer {
	if echo == nil || !Enabled(config) {
		return w
	}
	return io.MultiWriter(w, echo)
}
