// Package fs defines the storage capability every manifestly component
// depends on. A Filesystem may be backed by the local disk, an in-memory
// tree, or a remote object store; callers never see which.
package fs

import (
	"os"
	"path/filepath"
)

// Filesystem is the storage contract the manifest pipeline runs on. The
// scanner walks and opens files, the store and sync executor stage writes
// through TempFile and land them with Rename, and the ignore loader probes
// with Exists. Implementations should behave consistently with the standard
// library.
type Filesystem interface {
	Exists(path string) (bool, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (File, error)
	ReadFile(path string) ([]byte, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	TempFile(dir, prefix string) (File, error)
	Walk(root string, walkFn filepath.WalkFunc) error
	WriteFile(filename string, data []byte, perm os.FileMode) error
}
