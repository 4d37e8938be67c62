package miniofs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/gdoermann/manifestly/errors"
	parentfs "github.com/gdoermann/manifestly/fs"
	"github.com/gdoermann/manifestly/fs/fstest"
)

// fakeClient is an in-memory Client for tests.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}}
}

func noSuchKey(key string) error {
	return minio.ErrorResponse{Code: "NoSuchKey", Key: key, Message: "The specified key does not exist."}
}

//nolint:ireturn // fake implements the Client contract.
func (c *fakeClient) GetObject(_ context.Context, _, key string, _ minio.GetObjectOptions) (ObjectReader, error) {
	c.mu.Lock()
	data, ok := c.objects[key]
	c.mu.Unlock()
	if !ok {
		// The real client defers missing-key errors to the first read.
		return &fakeObject{err: noSuchKey(key)}, nil
	}
	return &fakeObject{reader: bytes.NewReader(data)}, nil
}

func (c *fakeClient) PutObject(_ context.Context, _, key string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	c.mu.Lock()
	c.objects[key] = data
	c.mu.Unlock()
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (c *fakeClient) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	c.mu.Lock()
	data, ok := c.objects[key]
	c.mu.Unlock()
	if !ok {
		return minio.ObjectInfo{}, noSuchKey(key)
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: time.Now()}, nil
}

func (c *fakeClient) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	c.mu.Lock()
	delete(c.objects, key)
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) CopyObject(_ context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[src.Object]
	if !ok {
		return minio.UploadInfo{}, noSuchKey(src.Object)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.objects[dst.Object] = cp
	return minio.UploadInfo{Key: dst.Object, Size: int64(len(cp))}, nil
}

func (c *fakeClient) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	c.mu.Lock()
	keys := make([]string, 0, len(c.objects))
	for k := range c.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sizes := make(map[string]int64, len(keys))
	for _, k := range keys {
		sizes[k] = int64(len(c.objects[k]))
	}
	c.mu.Unlock()
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		sent := 0
		seen := map[string]bool{}
		for _, k := range keys {
			if opts.MaxKeys > 0 && sent >= opts.MaxKeys {
				return
			}
			entry := k
			size := sizes[k]
			if !opts.Recursive {
				// Collapse deeper keys into common prefixes.
				rest := strings.TrimPrefix(k, opts.Prefix)
				if i := strings.Index(rest, "/"); i >= 0 {
					entry = opts.Prefix + rest[:i+1]
					size = 0
				}
				if seen[entry] {
					continue
				}
				seen[entry] = true
			}
			ch <- minio.ObjectInfo{Key: entry, Size: size, LastModified: time.Now()}
			sent++
		}
	}()
	return ch
}

// fakeObject mimics the deferred-error read behavior of *minio.Object.
type fakeObject struct {
	reader *bytes.Reader
	err    error
}

func (o *fakeObject) Read(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.reader.Read(p)
}

func (o *fakeObject) Close() error { return nil }

func newTestFS() (*FS, *fakeClient) {
	client := newFakeClient()
	return New(client, "test-bucket"), client
}

func TestFS_Conformance(t *testing.T) {
	fstest.Suite(t, func() parentfs.Filesystem {
		fsys, _ := newTestFS()
		return fsys
	}, "/")
}

func TestFS_WriteReadRoundTrip(t *testing.T) {
	fsys, _ := newTestFS()

	require.NoError(t, fsys.WriteFile("/data/hello.txt", []byte("hello object"), 0o644))

	data, err := fsys.ReadFile("/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello object", string(data))
}

func TestFS_WriteVisibleOnlyAfterClose(t *testing.T) {
	fsys, client := newTestFS()

	f, err := fsys.TempFile("/data", "pending.")
	require.NoError(t, err)
	_, err = f.Write([]byte("buffered"))
	require.NoError(t, err)

	client.mu.Lock()
	visible := len(client.objects)
	client.mu.Unlock()
	assert.Zero(t, visible, "object must not exist before Close")

	require.NoError(t, f.Close())

	data, err := fsys.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "buffered", string(data))
}

func TestFS_OpenMissing(t *testing.T) {
	fsys, _ := newTestFS()

	_, err := fsys.ReadFile("/missing.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, merrors.ErrPathNotFound))
}

func TestFS_StatPrefixAsDirectory(t *testing.T) {
	fsys, _ := newTestFS()
	require.NoError(t, fsys.WriteFile("/tree/sub/leaf.txt", []byte("x"), 0o644))

	info, err := fsys.Stat("/tree/sub")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	exists, err := fsys.Exists("/tree")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fsys.Exists("/nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFS_Rename(t *testing.T) {
	fsys, _ := newTestFS()
	require.NoError(t, fsys.WriteFile("/a.txt", []byte("content"), 0o644))

	require.NoError(t, fsys.Rename("/a.txt", "/b.txt"))

	data, err := fsys.ReadFile("/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	exists, err := fsys.Exists("/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFS_TempFileRename(t *testing.T) {
	fsys, _ := newTestFS()

	tmp, err := fsys.TempFile("/stage", "part.")
	require.NoError(t, err)
	_, err = tmp.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	require.NoError(t, fsys.Rename(tmp.Name(), "/stage/final.txt"))

	data, err := fsys.ReadFile("/stage/final.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFS_Walk(t *testing.T) {
	fsys, _ := newTestFS()
	require.NoError(t, fsys.WriteFile("/root/a.txt", []byte("a"), 0o644))
	require.NoError(t, fsys.WriteFile("/root/sub/b.txt", []byte("b"), 0o644))
	require.NoError(t, fsys.WriteFile("/other/c.txt", []byte("c"), 0o644))

	var files []string
	err := fsys.Walk("/root", func(p string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/a.txt", "/root/sub/b.txt"}, files)
}

func TestTranslateError(t *testing.T) {
	authErr := minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}
	err := translateError("stat", "/p", authErr)
	assert.True(t, errors.Is(err, merrors.ErrAuthFailed))
	assert.False(t, merrors.IsRetryable(err))

	otherErr := minio.ErrorResponse{Code: "SlowDown", Message: "throttled"}
	err = translateError("stat", "/p", otherErr)
	assert.True(t, errors.Is(err, merrors.ErrRemoteBackend))
	assert.True(t, merrors.IsRetryable(err))
}
