//go:build !windows

package reaper

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nodeshim/nodeshim/procgroup"
)

func startSleeper(t *testing.T) (*exec.Cmd, *procgroup.Group) {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	procgroup.Configure(cmd)
	require.NoError(t, cmd.Start())
	g := procgroup.New(cmd.Process)
	t.Cleanup(func() {
		_ = g.Kill()
		_ = cmd.Wait()
	})
	return cmd, g
}

func writeRecord(t *testing.T, r *Registry, rec record) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(r.dir, 0755))
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(r.dir, strconv.Itoa(rec.Pid)+recordSuffix)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestTrackedRecordIsNotReaped(t *testing.T) {
	r := New(t.TempDir())
	_, g := startSleeper(t)

	tracked, err := r.Track(g)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(r.dir, strconv.Itoa(g.Pid)+recordSuffix))

	reaped, err := r.Reap()
	require.NoError(t, err)
	assert.Empty(t, reaped)
	assert.True(t, procgroup.Alive(g.Pid))

	require.NoError(t, tracked.Release())
	assert.NoFileExists(t, filepath.Join(r.dir, strconv.Itoa(g.Pid)+recordSuffix))
	assert.NoFileExists(t, filepath.Join(r.dir, strconv.Itoa(g.Pid)+lockSuffix))
}

func TestReleaseNil(t *testing.T) {
	var tracked *Tracked
	assert.NoError(t, tracked.Release())
}

func TestReapOrphan(t *testing.T) {
	r := New(t.TempDir())
	cmd, g := startSleeper(t)

	created, err := procgroup.CreateTime(g.Pid)
	require.NoError(t, err)
	path := writeRecord(t, r, record{Pid: g.Pid, Pgid: g.Pgid, Created: created})

	reaped, err := r.Reap()
	require.NoError(t, err)
	assert.Equal(t, []int{g.Pid}, reaped)
	assert.NoFileExists(t, path)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orphaned process was not terminated")
	}
}

func TestReapGroupOfExitedChild(t *testing.T) {
	r := New(t.TempDir())
	cmd := exec.Command("sh", "-c", "sleep 60 >/dev/null 2>&1 & echo $!")
	procgroup.Configure(cmd)
	out, err := cmd.Output()
	require.NoError(t, err)
	grandchildPid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Kill(grandchildPid, unix.SIGKILL) })

	pgid := cmd.Process.Pid
	require.True(t, procgroup.GroupAlive(pgid))
	path := writeRecord(t, r, record{Pid: cmd.Process.Pid, Pgid: pgid, Created: 1})

	reaped, err := r.Reap()
	require.NoError(t, err)
	assert.Equal(t, []int{cmd.Process.Pid}, reaped)
	assert.NoFileExists(t, path)
	assert.Eventually(t, func() bool { return !procgroup.Alive(grandchildPid) }, 5*time.Second, 20*time.Millisecond)
}

func TestReapSkipsReusedProcessID(t *testing.T) {
	r := New(t.TempDir())
	_, g := startSleeper(t)

	created, err := procgroup.CreateTime(g.Pid)
	require.NoError(t, err)
	path := writeRecord(t, r, record{Pid: g.Pid, Pgid: g.Pgid, Created: created - 60000})

	reaped, err := r.Reap()
	require.NoError(t, err)
	assert.Empty(t, reaped)
	assert.True(t, procgroup.Alive(g.Pid))
	assert.NoFileExists(t, path)
}

func TestReapExitedProcess(t *testing.T) {
	r := New(t.TempDir())
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	path := writeRecord(t, r, record{Pid: cmd.Process.Pid, Pgid: cmd.Process.Pid, Created: 1})

	reaped, err := r.Reap()
	require.NoError(t, err)
	assert.Empty(t, reaped)
	assert.NoFileExists(t, path)
}

func TestReapCorruptRecord(t *testing.T) {
	r := New(t.TempDir())
	require.NoError(t, os.MkdirAll(r.dir, 0755))
	path := filepath.Join(r.dir, "123"+recordSuffix)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := r.Reap()
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestReapEmptyRegistry(t *testing.T) {
	reaped, err := New(filepath.Join(t.TempDir(), "missing")).Reap()
	require.NoError(t, err)
	assert.Empty(t, reaped)
}
