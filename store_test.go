package manifestly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs/billy"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	m, err := Generate(context.Background(), fsys, "/site")
	require.NoError(t, err)
	require.NoError(t, Save(fsys, m, "/site"))

	// Saving into a directory uses the configured manifest name.
	exists, err := fsys.Exists("/site/.manifestly.json")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := Load(fsys, "/site")
	require.NoError(t, err)

	assert.Equal(t, "/site", loaded.Root())
	assert.Equal(t, m.Algorithm(), loaded.Algorithm())
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestSaveLoad_ExplicitFilePath(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	m, err := Generate(context.Background(), fsys, "/site")
	require.NoError(t, err)
	require.NoError(t, Save(fsys, m, "/manifests/site.json"))

	loaded, err := Load(fsys, "/manifests/site.json", WithRoot("/site"))
	require.NoError(t, err)
	assert.Equal(t, "/site", loaded.Root())
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestLoad_RootDefaultsToParent(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	m, err := Generate(context.Background(), fsys, "/site")
	require.NoError(t, err)
	require.NoError(t, Save(fsys, m, "/site"))

	loaded, err := Load(fsys, "/site/.manifestly.json")
	require.NoError(t, err)
	assert.Equal(t, "/site", loaded.Root())
}

func TestLoad_Missing(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.MkdirAll("/empty", 0o755))

	_, err := Load(fsys, "/empty")
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrManifestNotFound)

	_, err = Load(fsys, "/does/not/exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrManifestNotFound)
}

func TestLoad_Malformed(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("/site/.manifestly.json", []byte("{broken"), 0o644))

	_, err := Load(fsys, "/site/.manifestly.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrMalformedManifest)
}

func TestLoad_MissingFilesKey(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("/site/.manifestly.json", []byte(`{"root":"/site"}`), 0o644))

	_, err := Load(fsys, "/site/.manifestly.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, merrors.ErrMalformedManifest)
}

func TestSaveLoad_YAML(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	m, err := Generate(context.Background(), fsys, "/site", WithFormat("yaml"))
	require.NoError(t, err)
	require.NoError(t, Save(fsys, m, "/manifests/site.yaml"))

	loaded, err := Load(fsys, "/manifests/site.yaml", WithFormat("yaml"), WithRoot("/site"))
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestLoad_AlgorithmComesFromDocument(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	seedSourceTree(t, fsys)

	m, err := Generate(context.Background(), fsys, "/site", WithAlgorithm("md5"))
	require.NoError(t, err)
	require.NoError(t, Save(fsys, m, "/site"))

	// No algorithm option on load; the persisted document decides.
	loaded, err := Load(fsys, "/site")
	require.NoError(t, err)
	assert.Equal(t, "md5", loaded.Algorithm())
}
