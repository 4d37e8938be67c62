// Package miniofs adapts an S3-compatible object store to the manifestly
// fs.Filesystem capability using the MinIO client. Object keys are treated
// as forward-slash separated paths; directories exist only implicitly as
// key prefixes, so MkdirAll is a no-op and Walk never descends into empty
// prefixes.
package miniofs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/xid"

	parentfs "github.com/gdoermann/manifestly/fs"
)

// FS implements the Filesystem interface against one bucket of an
// S3-compatible object store.
type FS struct {
	client Client
	bucket string
}

// Client is the subset of the MinIO client the filesystem depends on.
// Narrowing the dependency keeps the adapter testable without a live store.
type Client interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (ObjectReader, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// ObjectReader is the read handle returned by Client.GetObject, satisfied by
// *minio.Object. Like the real client, implementations may defer missing-key
// errors to the first Read.
type ObjectReader interface {
	io.ReadCloser
}

// New creates a new FS over the given client and bucket.
func New(client Client, bucket string) *FS {
	return &FS{client: client, bucket: bucket}
}

// NewFromClient creates a new FS over a concrete MinIO client.
func NewFromClient(client *minio.Client, bucket string) *FS {
	return New(minioClient{client}, bucket)
}

// minioClient narrows *minio.Client to the Client interface. Only GetObject
// needs an explicit wrapper, for its interface return type.
type minioClient struct {
	*minio.Client
}

//nolint:ireturn // interface return is the point of the wrapper.
func (c minioClient) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (ObjectReader, error) {
	return c.Client.GetObject(ctx, bucket, key, opts)
}

// key normalizes a path into an object key.
func (m *FS) key(name string) string {
	k := path.Clean(filepath.ToSlash(name))
	k = strings.TrimPrefix(k, "/")
	if k == "." {
		return ""
	}
	return k
}

// Exists implements Filesystem.Exists. A prefix with at least one object
// under it counts as an existing directory.
func (m *FS) Exists(p string) (bool, error) {
	_, err := m.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// MkdirAll implements Filesystem.MkdirAll. Object stores have no
// directories, so this always succeeds.
func (m *FS) MkdirAll(string, os.FileMode) error {
	return nil
}

// Open implements Filesystem.Open.
//
//nolint:ireturn // API returns the fs.File interface by design for flexibility.
func (m *FS) Open(name string) (parentfs.File, error) {
	return newFileRead(context.Background(), m, m.key(name), name)
}

// ReadFile implements Filesystem.ReadFile.
func (m *FS) ReadFile(p string) ([]byte, error) {
	f, err := m.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

// Remove implements Filesystem.Remove.
func (m *FS) Remove(name string) error {
	if err := m.client.RemoveObject(context.Background(), m.bucket, m.key(name), minio.RemoveObjectOptions{}); err != nil {
		return translateError("remove", name, err)
	}
	return nil
}

// Rename implements Filesystem.Rename as a server-side copy followed by a
// delete. The destination appears atomically when the copy completes.
func (m *FS) Rename(oldpath, newpath string) error {
	ctx := context.Background()
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: m.key(newpath)},
		minio.CopySrcOptions{Bucket: m.bucket, Object: m.key(oldpath)},
	)
	if err != nil {
		return translateError("rename", oldpath, err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, m.key(oldpath), minio.RemoveObjectOptions{}); err != nil {
		return translateError("rename", oldpath, err)
	}
	return nil
}

// Stat implements Filesystem.Stat. Prefixes holding at least one object are
// reported as directories.
func (m *FS) Stat(name string) (os.FileInfo, error) {
	ctx := context.Background()
	k := m.key(name)

	if k != "" {
		stat, err := m.client.StatObject(ctx, m.bucket, k, minio.StatObjectOptions{})
		if err == nil {
			return &fileInfo{
				name:    path.Base(k),
				size:    stat.Size,
				mode:    0o644,
				modTime: stat.LastModified,
			}, nil
		}
		if !isNoSuchKey(err) {
			return nil, translateError("stat", name, err)
		}
	}

	// Not an object; see whether it exists as a prefix.
	prefix := k
	if prefix != "" {
		prefix += "/"
	}
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range m.client.ListObjects(listCtx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, MaxKeys: 1}) {
		if obj.Err != nil {
			return nil, translateError("stat", name, obj.Err)
		}
		return &fileInfo{
			name:    path.Base(k),
			mode:    fs.ModeDir | 0o755,
			modTime: time.Now(),
		}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// TempFile implements Filesystem.TempFile. The temporary object is keyed
// with a unique suffix under dir; it does not exist until closed.
//
//nolint:ireturn // API returns the fs.File interface by design for flexibility.
func (m *FS) TempFile(dir, prefix string) (parentfs.File, error) {
	name := path.Join(dir, prefix+xid.New().String())
	return newFileWrite(m, m.key(name), name), nil
}

// Walk implements Filesystem.Walk by listing every object under root.
// Directory entries are synthesized only for the root itself; object stores
// cannot hold empty directories, so there is nothing else to visit.
func (m *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	ctx := context.Background()
	prefix := m.key(root)
	if prefix != "" {
		prefix += "/"
	}

	rootInfo := &fileInfo{name: path.Base(m.key(root)), mode: fs.ModeDir | 0o755, modTime: time.Now()}
	if err := walkFn(root, rootInfo, nil); err != nil {
		if errors.Is(err, filepath.SkipDir) {
			return nil
		}
		return err
	}

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return translateError("walk", root, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		info := &fileInfo{
			name:    path.Base(obj.Key),
			size:    obj.Size,
			mode:    0o644,
			modTime: obj.LastModified,
		}
		p := path.Join(root, strings.TrimPrefix(obj.Key, prefix))
		if err := walkFn(p, info, nil); err != nil {
			if errors.Is(err, filepath.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// WriteFile implements Filesystem.WriteFile. The object appears at its key
// only when the buffered upload completes.
func (m *FS) WriteFile(filename string, data []byte, _ os.FileMode) error {
	f := newFileWrite(m, m.key(filename), filename)
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Compile-time interface check.
var _ parentfs.Filesystem = (*FS)(nil)
