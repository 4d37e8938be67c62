package billy

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
)

// File wraps a go-billy file handle as the read or write stream the
// manifest pipeline consumes: Open handles feed the hasher and copy loop,
// TempFile handles buffer staged writes until Rename lands them.
type File struct {
	file billy.File
}

// Close implements File.Close.
func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("billy: close %q: %w", f.file.Name(), err)
	}
	return nil
}

// Name implements File.Name. Temp handles report their staging path, which
// the caller renames over the final destination.
func (f *File) Name() string {
	return f.file.Name()
}

// Read implements File.Read. io.EOF passes through unwrapped so chunked
// hashing loops terminate normally.
func (f *File) Read(p []byte) (n int, err error) {
	n, err = f.file.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, fmt.Errorf("billy: read %q: %w", f.file.Name(), err)
	}
	return n, nil
}

// Write implements File.Write.
func (f *File) Write(p []byte) (n int, err error) {
	n, err = f.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("billy: write %q: %w", f.file.Name(), err)
	}
	return n, nil
}
