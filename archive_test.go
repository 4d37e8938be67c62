package manifestly

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdoermann/manifestly/fs/billy"
)

func TestBuildArchive(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)
	seedTargetTree(t, fsys)

	source, err := Generate(context.Background(), fsys, "/site")
	require.NoError(t, err)
	target, err := Generate(context.Background(), fsys, "/mirror")
	require.NoError(t, err)

	diff, err := Diff(source, target)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, BuildArchive(diff, source, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	// Added and changed content sorted, metadata member last. Removed paths
	// carry no content.
	assert.Equal(t, []string{"about.html", "index.html", DiffEntryName}, names)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "<html>home</html>", string(content))

	rc, err = zr.File[2].Open()
	require.NoError(t, err)
	meta, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	var decoded DiffResult
	require.NoError(t, json.Unmarshal(meta, &decoded))
	assert.Equal(t, []string{"about.html"}, decoded.Added)
	assert.Equal(t, []string{"stale.html"}, decoded.Removed)
	assert.Equal(t, []string{"index.html"}, decoded.Changed)
}

func TestBuildArchive_EmptyDiff(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	source, err := Generate(context.Background(), fsys, "/site")
	require.NoError(t, err)

	diff, err := Diff(source, source)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, BuildArchive(diff, source, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, DiffEntryName, zr.File[0].Name)
}
