// Package procgroup starts children so that they and all of their descendants can be terminated together.
//
// On Unix the child leads a new process group and termination signals both the child and the group. On Windows,
// where process groups cannot be signaled, the whole process tree is terminated with taskkill.
package procgroup

import (
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/process"
)

// Group is a launched child together with the processes it spawned.
type Group struct {
	// Pid is the process ID of the child.
	Pid int
	// Pgid is the process group ID of the child, or 0 where process groups are not supported.
	Pgid int

	proc *os.Process
}

// Configure prepares cmd so that the process it starts can be terminated together with its descendants.
// It must be called before cmd.Start.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = newSysProcAttr()
}

// New returns the Group of a process started from a command prepared with Configure.
func New(proc *os.Process) *Group {
	return &Group{
		Pid:  proc.Pid,
		Pgid: groupID(proc.Pid),
		proc: proc,
	}
}

// Find returns the Group of a process that was not started by this process, e.g. one recorded by an earlier run.
func Find(pid, pgid int) (*Group, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}
	return &Group{Pid: pid, Pgid: pgid, proc: proc}, nil
}

// Terminate asks the child and its descendants to exit. Processes that are already gone are not an error.
func (g *Group) Terminate() error {
	return terminate(g)
}

// Kill forcibly stops the child and its descendants. Processes that are already gone are not an error.
func (g *Group) Kill() error {
	return kill(g)
}

// Alive reports whether a process with the given ID exists and has not yet exited. Zombies count as exited.
func Alive(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		running, err := p.IsRunning()
		return err == nil && running
	}
	return status != "Z" && status != "zombie"
}

// CreateTime returns the creation time of the given process in milliseconds since the epoch.
func CreateTime(pid int) (int64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, err
	}
	return p.CreateTime()
}
