package manifestly

import (
	"errors"
	"os"
	"path"
	"sort"
	"strings"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs"
	"github.com/gdoermann/manifestly/internal/codec"
)

// Load reads a persisted manifest. location may be either the manifest file
// itself or a directory, in which case the configured manifest name inside
// it is read. The returned manifest's root defaults to the manifest file's
// parent directory; WithRoot overrides it.
func Load(fsys fs.Filesystem, location string, opts ...Option) (*Manifest, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	filePath, err := resolveManifestPath(fsys, location, s.manifestName)
	if err != nil {
		return nil, err
	}

	data, err := fsys.ReadFile(filePath)
	if err != nil {
		if merrors.IsNotFound(err) || errors.Is(err, os.ErrNotExist) {
			return nil, merrors.NewPathError("load", filePath, merrors.ErrManifestNotFound)
		}
		return nil, merrors.NewPathError("load", filePath, err)
	}

	c, err := codec.ByName(formatFor(s.format, filePath))
	if err != nil {
		return nil, merrors.NewPathError("load", filePath, err)
	}

	var doc codec.Document
	if err := c.Unmarshal(data, &doc); err != nil {
		return nil, merrors.NewPathError("load", filePath, err)
	}
	if doc.Files == nil {
		return nil, merrors.NewPathError("load", filePath, merrors.ErrMalformedManifest)
	}

	root := s.root
	if root == "" {
		root = path.Dir(filePath)
	}

	m := newManifest(fsys, root, opts...)
	if doc.Algorithm != "" {
		m.settings.algorithm = doc.Algorithm
	}

	entries := make(map[string]Entry, len(doc.Files))
	paths := make([]string, 0, len(doc.Files))
	for p, fe := range doc.Files {
		entries[p] = Entry{Path: p, Size: fe.Size, Hash: fe.Hash}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	m.setEntries(entries, paths, doc.GeneratedAt)

	return m, nil
}

// Save persists the manifest. location may be the target file or a
// directory; a directory gets the configured manifest name inside it. The
// write is atomic: a temp file in the destination directory renamed over
// the final path, so readers never observe a partial manifest.
func Save(fsys fs.Filesystem, m *Manifest, location string) error {
	filePath, err := saveManifestPath(fsys, location, m.settings.manifestName)
	if err != nil {
		return err
	}

	c, err := codec.ByName(formatFor(m.settings.format, filePath))
	if err != nil {
		return merrors.NewPathError("save", filePath, err)
	}

	doc := codec.Document{
		Root:        m.root,
		Algorithm:   m.settings.algorithm,
		GeneratedAt: m.GeneratedAt(),
		Files:       map[string]codec.FileEntry{},
	}
	for _, e := range m.Entries() {
		doc.Files[e.Path] = codec.FileEntry{Hash: e.Hash, Size: e.Size}
	}

	data, err := c.Marshal(&doc)
	if err != nil {
		return merrors.NewPathError("save", filePath, err)
	}

	dir := path.Dir(filePath)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return merrors.NewPathError("save", dir, err)
	}

	tmp, err := fsys.TempFile(dir, path.Base(filePath)+".")
	if err != nil {
		return merrors.NewPathError("save", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("save", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("save", tmpName, err)
	}
	if err := fsys.Rename(tmpName, filePath); err != nil {
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("save", filePath, err)
	}

	return nil
}

// resolveManifestPath maps a load location onto the manifest file to read.
func resolveManifestPath(fsys fs.Filesystem, location, manifestName string) (string, error) {
	info, err := fsys.Stat(location)
	if err != nil {
		if merrors.IsNotFound(err) || errors.Is(err, os.ErrNotExist) {
			return "", merrors.NewPathError("load", location, merrors.ErrManifestNotFound)
		}
		return "", merrors.NewPathError("load", location, err)
	}
	if info.IsDir() {
		return path.Join(location, manifestName), nil
	}
	return location, nil
}

// saveManifestPath maps a save location onto the manifest file to write.
// Unlike loading, a missing location is treated as a file path to create.
func saveManifestPath(fsys fs.Filesystem, location, manifestName string) (string, error) {
	info, err := fsys.Stat(location)
	if err != nil {
		if merrors.IsNotFound(err) || errors.Is(err, os.ErrNotExist) {
			return location, nil
		}
		return "", merrors.NewPathError("save", location, err)
	}
	if info.IsDir() {
		return path.Join(location, manifestName), nil
	}
	return location, nil
}

// formatFor picks the codec name: an explicit format wins, otherwise the
// file extension decides, defaulting to json.
func formatFor(format, filePath string) string {
	if format != "" && format != "auto" {
		return format
	}
	switch strings.ToLower(path.Ext(filePath)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
