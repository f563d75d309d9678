//go:build !windows

package core

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

var terminationSignals = []os.Signal{unix.SIGTERM, os.Interrupt}

// raise restores the default disposition of sig and delivers it to this process again, so the launcher
// terminates the way it would have without a handler.
func raise(sig os.Signal) {
	signal.Reset(sig)
	if s, ok := sig.(syscall.Signal); ok {
		_ = unix.Kill(os.Getpid(), s)
	}
}
