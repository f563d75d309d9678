// Package core contains the core nodeshim logic: locating the bundled runtime binary and running it as a child
// process that never outlives the launcher.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/nodeshim/nodeshim/config"
	"github.com/nodeshim/nodeshim/output"
	"github.com/nodeshim/nodeshim/platforms"
	"github.com/nodeshim/nodeshim/procgroup"
	"github.com/nodeshim/nodeshim/reaper"
	"github.com/nodeshim/nodeshim/verify"
	"github.com/nodeshim/nodeshim/versions"
)

const (
	// RootEnv overrides the install root that contains the bundled runtime binaries.
	RootEnv = "NODESHIM_ROOT"
	// HomeEnv is the directory for nodeshim's own state.
	HomeEnv = "NODESHIM_HOME"
	// KillGraceEnv is how long a terminated child may take to exit before it is killed, e.g. "10s".
	KillGraceEnv = "NODESHIM_KILL_GRACE"
	// MinVersionEnv is the minimum runtime version the bundled binary must report.
	MinVersionEnv = "NODESHIM_MIN_VERSION"
	// VerifyKeyEnv is the path of an armored public key that must have signed the runtime binary.
	VerifyKeyEnv = "NODESHIM_VERIFY_KEY"
	// ChecksumEnv is the expected SHA-256 digest of the runtime binary.
	ChecksumEnv = "NODESHIM_SHA256"
	// ReapEnv disables terminating children of dead launchers when set to a false value.
	ReapEnv = "NODESHIM_REAP_ORPHANS"
	// VerboseEnv enables warnings about failures that nodeshim otherwise ignores.
	VerboseEnv = "NODESHIM_VERBOSE"
)

// reraise is replaced in tests, where delivering a termination signal would end the test binary.
var reraise = raise

// Launcher runs the bundled runtime binary.
type Launcher struct {
	Config config.Config
	// Root is the install root. If empty, NODESHIM_ROOT or the directory of the launcher executable is used.
	Root string
	// Stdout and Stderr receive the child's output while it runs, if echoing is enabled.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Launcher that echoes to the standard streams of this process.
func New(config config.Config) *Launcher {
	return &Launcher{
		Config: config,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// InstallRoot returns the directory below which the runtime binaries are installed.
func (l *Launcher) InstallRoot() (string, error) {
	if l.Root != "" {
		return l.Root, nil
	}

	if root := l.Config.Get(RootEnv); root != "" {
		expanded, err := homedir.Expand(root)
		if err != nil {
			return "", fmt.Errorf("could not expand home directory in path: %v", err)
		}
		return expanded, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("could not locate the launcher executable: %v", err)
	}
	// The launcher is often symlinked onto the PATH; the binaries live next to the real file.
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}
	return filepath.Dir(executable), nil
}

// BinaryPath returns the path of the runtime binary for the current platform.
// It returns a *platforms.UnsupportedPlatformError if there is none.
func (l *Launcher) BinaryPath() (string, error) {
	root, err := l.InstallRoot()
	if err != nil {
		return "", err
	}
	return platforms.DetermineBinaryPath(root)
}

// Run starts the runtime binary with the given arguments, waits for it to exit and returns its standard output.
// A non-zero exit status is returned as a *ChildProcessError.
func (l *Launcher) Run(ctx context.Context, args []string) (string, error) {
	binaryPath, err := l.BinaryPath()
	if err != nil {
		return "", err
	}

	if err := l.verifyBinary(binaryPath); err != nil {
		return "", err
	}

	l.reapOrphans()

	if minimum := l.Config.Get(MinVersionEnv); minimum != "" {
		out, err := l.runBinary(ctx, binaryPath, []string{"--version"}, false)
		if err != nil {
			return "", fmt.Errorf("could not determine runtime version: %w", err)
		}
		if err := versions.CheckMinimum(out, minimum); err != nil {
			return "", err
		}
	}

	return l.runBinary(ctx, binaryPath, args, true)
}

func (l *Launcher) runBinary(ctx context.Context, binaryPath string, args []string, echo bool) (string, error) {
	command := append([]string{binaryPath}, args...)

	workingDirectory, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not get working directory: %v", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = workingDirectory
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if echo {
		cmd.Stdout = output.Writer(&stdout, l.Stdout, l.Config)
		cmd.Stderr = output.Writer(&stderr, l.Stderr, l.Config)
	}
	procgroup.Configure(cmd)

	c := &child{
		grace:    l.killGrace(),
		warnf:    l.warnf,
		launched: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if c.grace > 0 {
		cmd.WaitDelay = c.grace
	}

	// The cleanup is registered before the signal handler and before the child exists, so the handler always
	// sees it.
	unregister := RegisterExitHook(c.cleanup)
	defer unregister()
	release := handleSignals()
	defer release()

	if err := cmd.Start(); err != nil {
		close(c.launched)
		return "", fmt.Errorf("could not start %s: %w", binaryPath, err)
	}

	group := procgroup.New(cmd.Process)
	c.start(group)

	tracked := l.track(group)
	defer func() {
		if err := tracked.Release(); err != nil {
			l.warnf("could not release record of process %d: %v", group.Pid, err)
		}
	}()
	// Also terminates descendants that outlive a child which exited on its own.
	defer c.cleanup()

	go func() {
		select {
		case <-ctx.Done():
			c.cleanup()
		case <-c.done:
		}
	}()

	waitErr := cmd.Wait()
	close(c.done)

	killed := c.wasKilled()
	if waitErr == nil && !killed {
		return stdout.String(), nil
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return "", fmt.Errorf("could not run %s: %w", binaryPath, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}
	return "", &ChildProcessError{
		Command:  command,
		Output:   diagnostic(stdout.String(), stderr.String()),
		ExitCode: exitCode,
		Killed:   killed,
	}
}

func (l *Launcher) verifyBinary(binaryPath string) error {
	if want := l.Config.Get(ChecksumEnv); want != "" {
		if err := verify.VerifyChecksum(binaryPath, want); err != nil {
			return fmt.Errorf("could not verify runtime binary: %v", err)
		}
	}

	keyPath := l.Config.Get(VerifyKeyEnv)
	if keyPath == "" {
		return nil
	}
	keyPath, err := homedir.Expand(keyPath)
	if err != nil {
		return fmt.Errorf("could not expand home directory in path: %v", err)
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("could not read verification key: %v", err)
	}
	if err := verify.VerifySignature(binaryPath, binaryPath+".sig", string(key)); err != nil {
		return fmt.Errorf("could not verify runtime binary: %v", err)
	}
	return nil
}

// registry returns the record of running children, or nil if reaping orphans is disabled.
func (l *Launcher) registry() (*reaper.Registry, error) {
	switch strings.ToLower(l.Config.Get(ReapEnv)) {
	case "no", "n", "false", "0":
		return nil, nil
	}

	home := l.Config.Get(HomeEnv)
	if home == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("could not get the user's cache directory: %v", err)
		}
		home = filepath.Join(userCacheDir, "nodeshim")
	} else {
		expanded, err := homedir.Expand(home)
		if err != nil {
			return nil, fmt.Errorf("could not expand home directory in path: %v", err)
		}
		home = expanded
	}
	return reaper.New(home), nil
}

func (l *Launcher) reapOrphans() {
	registry, err := l.registry()
	if err != nil {
		l.warnf("%v", err)
		return
	}
	if registry == nil {
		return
	}

	reaped, err := registry.Reap()
	if err != nil {
		l.warnf("could not terminate all orphaned processes: %v", err)
	}
	for _, pid := range reaped {
		l.warnf("terminated process %d left behind by a launcher that was killed", pid)
	}
}

func (l *Launcher) track(group *procgroup.Group) *reaper.Tracked {
	registry, err := l.registry()
	if err != nil {
		l.warnf("%v", err)
		return nil
	}
	if registry == nil {
		return nil
	}

	tracked, err := registry.Track(group)
	if err != nil {
		l.warnf("could not record process %d: %v", group.Pid, err)
		return nil
	}
	return tracked
}

func (l *Launcher) killGrace() time.Duration {
	value := l.Config.Get(KillGraceEnv)
	if value == "" {
		return 0
	}
	grace, err := time.ParseDuration(value)
	if err != nil {
		l.warnf("invalid %s %q, waiting for the child without a time limit: %v", KillGraceEnv, value, err)
		return 0
	}
	return grace
}

func (l *Launcher) warnf(format string, args ...interface{}) {
	if l.Config.Get(VerboseEnv) == "" {
		return
	}
	log.Printf("WARN: "+format, args...)
}

// child tracks one launched runtime process and its termination.
type child struct {
	grace time.Duration
	warnf func(format string, args ...interface{})

	// launched is closed once the child has started or failed to start.
	launched chan struct{}
	// done is closed once the child has exited and been reaped.
	done chan struct{}

	once   sync.Once
	mu     sync.Mutex
	group  *procgroup.Group
	killed bool
}

func (c *child) start(group *procgroup.Group) {
	c.mu.Lock()
	c.group = group
	c.mu.Unlock()
	close(c.launched)
}

func (c *child) wasKilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.killed
}

// cleanup terminates the child and its descendants and waits until the child has exited. Only the first call does
// anything; later calls wait for the first one to finish.
func (c *child) cleanup() {
	c.once.Do(func() {
		<-c.launched

		c.mu.Lock()
		group := c.group
		if group != nil {
			select {
			case <-c.done:
			default:
				c.killed = true
			}
		}
		c.mu.Unlock()

		if group == nil {
			return
		}
		if err := group.Terminate(); err != nil {
			c.warnf("could not terminate process %d: %v", group.Pid, err)
		}
		c.wait(group)
	})
}

func (c *child) wait(group *procgroup.Group) {
	if c.grace <= 0 {
		<-c.done
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(c.grace):
	}

	if err := group.Kill(); err != nil {
		c.warnf("could not kill process %d: %v", group.Pid, err)
	}
	<-c.done
}
