//go:build windows

package core

import (
	"os"
	"os/signal"
	"syscall"
)

var terminationSignals = []os.Signal{syscall.SIGTERM, os.Interrupt}

// raise cannot re-deliver a console event on Windows, so it exits the way an unhandled event would.
func raise(sig os.Signal) {
	signal.Reset(sig)
	os.Exit(1)
}
