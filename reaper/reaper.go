// Package reaper terminates children left behind by launchers that died before they could clean up after them.
//
// Every running child is recorded in a directory below the nodeshim home. The launcher that started the child holds
// a file lock next to the record for as long as it is alive, so a record whose lock can be acquired belongs to a
// launcher that was killed without running its termination hooks.
package reaper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/nodeshim/nodeshim/procgroup"
)

const (
	recordSuffix = ".json"
	lockSuffix   = ".lock"
)

type record struct {
	Pid     int   `json:"pid"`
	Pgid    int   `json:"pgid"`
	Created int64 `json:"created"`
}

// Registry is the directory of child records.
type Registry struct {
	dir string
}

// New returns the Registry stored below the given nodeshim home directory.
func New(home string) *Registry {
	return &Registry{dir: filepath.Join(home, "children")}
}

// Tracked is the record of a running child. Release it once the child has exited.
type Tracked struct {
	base string
	lock *flock.Flock
}

// Track records the given child and locks the record until Release is called.
func (r *Registry) Track(g *procgroup.Group) (*Tracked, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create directory %s: %v", r.dir, err)
	}

	created, err := procgroup.CreateTime(g.Pid)
	if err != nil {
		return nil, fmt.Errorf("could not determine start time of process %d: %v", g.Pid, err)
	}

	base := filepath.Join(r.dir, strconv.Itoa(g.Pid))
	lock := flock.New(base + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not lock %s: %v", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("record of process %d is held by another launcher", g.Pid)
	}

	data, err := json.Marshal(record{Pid: g.Pid, Pgid: g.Pgid, Created: created})
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if err := os.WriteFile(base+recordSuffix, data, 0644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("could not write %s: %v", base+recordSuffix, err)
	}

	return &Tracked{base: base, lock: lock}, nil
}

// Release removes the record and gives up its lock.
func (t *Tracked) Release() error {
	if t == nil {
		return nil
	}
	var errs []error
	if err := os.Remove(t.base + recordSuffix); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := t.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(t.base + lockSuffix); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reap terminates the children of dead launchers and removes their records. It returns the IDs of the processes it
// terminated.
func (r *Registry) Reap() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, "*"+recordSuffix))
	if err != nil {
		return nil, err
	}

	var reaped []int
	var errs []error
	for _, match := range matches {
		pid, ok, err := reapRecord(strings.TrimSuffix(match, recordSuffix))
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			reaped = append(reaped, pid)
		}
	}
	return reaped, errors.Join(errs...)
}

func reapRecord(base string) (int, bool, error) {
	lock := flock.New(base + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return 0, false, fmt.Errorf("could not lock %s: %v", lock.Path(), err)
	}
	if !locked {
		// The launcher that owns this child is still running.
		return 0, false, nil
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(base + lockSuffix)
	}()

	recordPath := base + recordSuffix
	data, err := os.ReadFile(recordPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("could not read %s: %v", recordPath, err)
	}
	defer os.Remove(recordPath)

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("could not parse %s: %v", recordPath, err)
	}

	if procgroup.Alive(rec.Pid) {
		// A different start time means the ID now belongs to an unrelated process.
		if created, err := procgroup.CreateTime(rec.Pid); err != nil || created != rec.Created {
			return 0, false, nil
		}
	} else if !procgroup.GroupAlive(rec.Pgid) {
		// The child died with its launcher, but the processes it spawned may still hold the group.
		return 0, false, nil
	}

	g, err := procgroup.Find(rec.Pid, rec.Pgid)
	if err != nil {
		return 0, false, fmt.Errorf("could not find process %d: %v", rec.Pid, err)
	}
	if err := g.Terminate(); err != nil {
		return 0, false, fmt.Errorf("could not terminate orphaned process %d: %v", rec.Pid, err)
	}
	return rec.Pid, true, nil
}
