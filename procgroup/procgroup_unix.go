//go:build !windows

package procgroup

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func groupID(pid int) int {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		// The child was started with Setpgid, so it leads its own group.
		return pid
	}
	return pgid
}

// GroupAlive reports whether any process is left in the given process group. A group ID is not reused while the
// group has members.
func GroupAlive(pgid int) bool {
	if pgid <= 0 || pgid == unix.Getpgrp() {
		return false
	}
	return unix.Kill(-pgid, 0) == nil
}

func terminate(g *Group) error {
	return signalGroup(g, unix.SIGTERM)
}

func kill(g *Group) error {
	return signalGroup(g, unix.SIGKILL)
}

func signalGroup(g *Group, sig syscall.Signal) error {
	var errs []error
	if g.proc != nil {
		if err := g.proc.Signal(sig); err != nil && !isGone(err) {
			errs = append(errs, err)
		}
	}
	// Never signal our own group, e.g. when a recorded group ID is stale.
	if g.Pgid > 0 && g.Pgid != unix.Getpgrp() {
		if err := unix.Kill(-g.Pgid, sig); err != nil && !isGone(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, unix.ESRCH)
}
