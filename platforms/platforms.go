// Package platforms determines where the bundled runtime binary lives for the current operating system.
package platforms

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// UnsupportedPlatformError is returned for operating systems without a bundled runtime binary.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported operating system \"%s\" (%s), must be Linux, macOS or Windows", e.OS, e.Arch)
}

// BinaryPathSegments returns the path segments, relative to the install root, of the runtime binary for the given
// operating system and machine architecture.
func BinaryPathSegments(goos, goarch string) ([]string, error) {
	switch goos {
	case "darwin":
		darwinName := "node-darwin-x64"
		if goarch == "arm64" {
			darwinName = "node-darwin-arm64"
		}
		return []string{"mac", darwinName, "bin", "node"}, nil
	case "linux":
		return []string{"linux", "node-linux-x64", "bin", "node"}, nil
	case "windows":
		return []string{"win", "node.exe"}, nil
	default:
		return nil, &UnsupportedPlatformError{OS: goos, Arch: goarch}
	}
}

// DetermineBinaryPath returns the full path of the runtime binary below root for the current platform.
func DetermineBinaryPath(root string) (string, error) {
	segments, err := BinaryPathSegments(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{root}, segments...)...), nil
}
