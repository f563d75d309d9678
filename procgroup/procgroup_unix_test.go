//go:build !windows

package procgroup

import (
	"bufio"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func startSleeper(t *testing.T) (*exec.Cmd, *Group) {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	Configure(cmd)
	require.NoError(t, cmd.Start())
	return cmd, New(cmd.Process)
}

func TestChildLeadsItsOwnGroup(t *testing.T) {
	cmd, g := startSleeper(t)
	defer func() {
		_ = g.Kill()
		_ = cmd.Wait()
	}()

	assert.Equal(t, cmd.Process.Pid, g.Pid)
	assert.Equal(t, g.Pid, g.Pgid)
	assert.NotEqual(t, unix.Getpgrp(), g.Pgid)
}

func TestTerminateIsIdempotent(t *testing.T) {
	cmd, g := startSleeper(t)

	require.NoError(t, g.Terminate())
	err := cmd.Wait()
	require.Error(t, err)
	assert.False(t, Alive(g.Pid))

	assert.NoError(t, g.Terminate())
	assert.NoError(t, g.Kill())
}

func TestTerminateReachesDescendants(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "sleep 60 & echo $!; wait")
	Configure(cmd)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	g := New(cmd.Process)

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	grandchild, err := strconv.Atoi(strings.TrimSpace(line))
	require.NoError(t, err)
	require.True(t, Alive(grandchild))

	require.NoError(t, g.Terminate())
	_ = cmd.Wait()

	assert.Eventually(t, func() bool { return !Alive(grandchild) }, 5*time.Second, 20*time.Millisecond)
}

func TestFindSignalsRecordedGroup(t *testing.T) {
	cmd, started := startSleeper(t)

	found, err := Find(started.Pid, started.Pgid)
	require.NoError(t, err)
	require.NoError(t, found.Kill())
	_ = cmd.Wait()

	assert.False(t, Alive(started.Pid))
}

func TestCreateTime(t *testing.T) {
	cmd, g := startSleeper(t)
	defer func() {
		_ = g.Kill()
		_ = cmd.Wait()
	}()

	created, err := CreateTime(g.Pid)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), created, float64(time.Minute.Milliseconds()))
}

func TestGroupAlive(t *testing.T) {
	cmd, g := startSleeper(t)
	assert.True(t, GroupAlive(g.Pgid))
	assert.False(t, GroupAlive(unix.Getpgrp()))
	assert.False(t, GroupAlive(0))

	require.NoError(t, g.Kill())
	_ = cmd.Wait()
	assert.False(t, GroupAlive(g.Pgid))
}
