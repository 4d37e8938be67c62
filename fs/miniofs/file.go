package miniofs

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/minio/minio-go/v7"
)

// File is an object handle in one of two modes: read handles hold the
// downloaded object in memory, write handles accumulate into a buffer that
// uploads on Close. The object is not visible at its key until the upload
// completes, so staged sync copies stay invisible until renamed.
type File struct {
	fs   *FS
	key  string // full object key
	name string // original name provided to Open or TempFile

	reader *bytes.Reader // read mode
	buffer *bytes.Buffer // write mode
	closed bool
}

// newFileRead creates a File in read mode by downloading the object.
func newFileRead(ctx context.Context, mfs *FS, key, name string) (*File, error) {
	obj, err := mfs.client.GetObject(ctx, mfs.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError("open", name, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateError("open", name, err)
	}

	return &File{
		fs:     mfs,
		key:    key,
		name:   name,
		reader: bytes.NewReader(data),
	}, nil
}

// newFileWrite creates a File in write mode with an empty buffer.
func newFileWrite(mfs *FS, key, name string) *File {
	return &File{
		fs:     mfs,
		key:    key,
		name:   name,
		buffer: new(bytes.Buffer),
	}
}

// Read reads from the downloaded object. Read mode only.
func (f *File) Read(p []byte) (int, error) {
	if f.reader == nil {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrInvalid}
	}
	return f.reader.Read(p)
}

// Write appends p to the upload buffer. Write mode only.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, &fs.PathError{Op: "write", Path: f.name, Err: fs.ErrClosed}
	}
	if f.buffer == nil {
		return 0, &fs.PathError{Op: "write", Path: f.name, Err: fs.ErrInvalid}
	}
	return f.buffer.Write(p)
}

// Close closes the file. In write mode, Close uploads the buffer contents;
// the object is not visible at its key until the upload succeeds.
func (f *File) Close() error {
	if f.closed {
		return nil // idempotent
	}
	f.closed = true

	if f.buffer != nil {
		return f.sync(context.Background())
	}
	return nil
}

// sync uploads the buffered contents.
func (f *File) sync(ctx context.Context) error {
	reader := bytes.NewReader(f.buffer.Bytes())
	_, err := f.fs.client.PutObject(
		ctx,
		f.fs.bucket,
		f.key,
		reader,
		int64(f.buffer.Len()),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return translateError("close", f.name, err)
	}
	return nil
}

// Name returns the name the file was opened under.
func (f *File) Name() string {
	return f.name
}

// fileInfo implements fs.FileInfo for objects and synthesized prefixes.
type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
	mode    fs.FileMode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.mode&fs.ModeDir != 0 }
func (fi *fileInfo) Sys() interface{}   { return nil }
