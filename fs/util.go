package fs

import (
	"path/filepath"
)

// GetAbs converts a path to an absolute path using the host filesystem rules.
// Absolute paths are returned unchanged.
func GetAbs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}
