package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoManifest is returned by FindManifest when no manifest file exists in
// the start directory or any of its parents.
var ErrNoManifest = errors.New("no manifest file found")

// FindManifest looks for one of ManifestFileNames in startDir, then in each
// parent directory up to the filesystem root.
func FindManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for {
		for _, name := range ManifestFileNames {
			candidate := filepath.Join(dir, name)
			st, err := os.Stat(candidate)
			if err == nil && !st.IsDir() {
				return candidate, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("checking %s: %w", candidate, err)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s or its parents", ErrNoManifest, startDir)
		}
		dir = parent
	}
}
