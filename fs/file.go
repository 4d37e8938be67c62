package fs

// File is an open handle from a Filesystem. Handles from Open are read
// streams feeding the hasher and copy pipeline; handles from TempFile are
// write streams that land atomically via Rename after Close. Name reports
// the path the handle was opened under, which Rename needs for staged
// writes.
type File interface {
	Close() error
	Name() string
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
}
