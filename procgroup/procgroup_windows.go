//go:build windows

package procgroup

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

func newSysProcAttr() *syscall.SysProcAttr {
	// Keep console control events from reaching the child directly; the launcher terminates it instead.
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

func groupID(pid int) int {
	return 0
}

// GroupAlive always reports false: there are no process groups to find left-over members in.
func GroupAlive(pgid int) bool {
	return false
}

// Windows has no graceful termination request for console processes, so both paths kill the tree.
func terminate(g *Group) error {
	return killTree(g)
}

func kill(g *Group) error {
	return killTree(g)
}

func killTree(g *Group) error {
	out, err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(g.Pid)).CombinedOutput()
	if err == nil || !Alive(g.Pid) {
		return nil
	}
	if g.proc != nil {
		if killErr := g.proc.Kill(); killErr == nil || !Alive(g.Pid) {
			return nil
		}
	}
	return fmt.Errorf("could not terminate process tree of %d: %v: %s", g.Pid, err, out)
}
