package ws

import (
	"os"
	"path/filepath"
)

// rootMarkers are the files whose presence marks a project root.
var rootMarkers = []string{".nodeshimrc", "package.json"}

// FindProjectRoot returns the closest directory at or above root that contains a project marker file, if any.
func FindProjectRoot(root string) string {
	for _, marker := range rootMarkers {
		if isRegularFile(filepath.Join(root, marker)) {
			return root
		}
	}

	parentDirectory := filepath.Dir(root)
	if parentDirectory == root {
		return ""
	}

	return FindProjectRoot(parentDirectory)
}

// isRegularFile returns true iff the supplied path exists and is not a directory.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
