package manifestly

import (
	"context"
	"path"
	"sync"
	"time"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs"
	"github.com/gdoermann/manifestly/internal/ignore"
	"github.com/gdoermann/manifestly/internal/scanner"
)

// Entry is one manifest record: a normalized relative path with the size and
// content hash observed for it.
type Entry struct {
	Path string
	Size int64
	Hash string
}

// Manifest is a content-addressed snapshot of a directory tree. It holds one
// Entry per admitted regular file, keyed by normalized relative path, plus
// enough of the scan configuration to rescan the same root.
//
// A Manifest is safe for concurrent readers. Refresh replaces the entry set
// atomically, so readers observe either the old snapshot or the new one.
type Manifest struct {
	fsys     fs.Filesystem
	root     string
	settings settings

	mu          sync.RWMutex
	generatedAt time.Time
	entries     map[string]Entry
	paths       []string // sorted
}

// Generate scans root through fsys and returns its manifest. Per-file
// failures are attributed to their paths and returned as an aggregate after
// the scan completes; the manifest is only returned when every admitted file
// hashed successfully.
func Generate(ctx context.Context, fsys fs.Filesystem, root string, opts ...Option) (*Manifest, error) {
	m := newManifest(fsys, root, opts...)

	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// NewEmpty returns a manifest of root with no entries, without scanning.
// Sync uses it as the target side when no manifest exists yet, which turns
// the first sync into a full seed copy.
func NewEmpty(fsys fs.Filesystem, root string, opts ...Option) *Manifest {
	m := newManifest(fsys, root, opts...)
	m.generatedAt = time.Now().UTC()
	return m
}

func newManifest(fsys fs.Filesystem, root string, opts ...Option) *Manifest {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	return &Manifest{
		fsys:     fsys,
		root:     root,
		settings: s,
		entries:  map[string]Entry{},
	}
}

// Refresh rescans the manifest's root with its original configuration and
// replaces the entry set in one step. On error the previous snapshot is kept.
func (m *Manifest) Refresh(ctx context.Context) error {
	matcher, err := m.buildMatcher()
	if err != nil {
		return merrors.New("generate", err).WithPath(m.root)
	}

	scanned, err := scanner.Scan(ctx, m.fsys, m.root, scanner.Options{
		Algorithm:   m.settings.algorithm,
		ChunkSize:   m.settings.chunkSize,
		Concurrency: m.settings.concurrency,
		Matcher:     matcher,
	})
	if err != nil {
		return err
	}

	entries := make(map[string]Entry, len(scanned))
	paths := make([]string, 0, len(scanned))
	for _, e := range scanned {
		entries[e.Path] = Entry{Path: e.Path, Size: e.Size, Hash: e.Hash}
		paths = append(paths, e.Path)
	}

	m.mu.Lock()
	m.entries = entries
	m.paths = paths
	m.generatedAt = time.Now().UTC()
	m.mu.Unlock()

	return nil
}

// buildMatcher assembles the ignore rule list in precedence order: the
// manifest and ignore filenames themselves, then the ignore file's rules,
// then explicit excludes, with explicit includes last so they win.
func (m *Manifest) buildMatcher() (*ignore.Matcher, error) {
	matcher := ignore.New()

	if err := matcher.AddExcludes([]string{m.settings.manifestName, m.settings.ignoreName}); err != nil {
		return nil, err
	}

	patterns, err := ignore.LoadPatterns(m.fsys, path.Join(m.root, m.settings.ignoreName))
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if err := matcher.AddPattern(p); err != nil {
			return nil, err
		}
	}

	if err := matcher.AddExcludes(m.settings.exclude); err != nil {
		return nil, err
	}
	if err := matcher.AddIncludes(m.settings.include); err != nil {
		return nil, err
	}
	return matcher, nil
}

// Root returns the backend path of the tree this manifest describes.
func (m *Manifest) Root() string {
	return m.root
}

// Algorithm returns the hash algorithm the entries were produced with.
func (m *Manifest) Algorithm() string {
	return m.settings.algorithm
}

// GeneratedAt returns when the current entry set was produced.
func (m *Manifest) GeneratedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generatedAt
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Lookup returns the entry for a normalized relative path.
func (m *Manifest) Lookup(relPath string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[relPath]
	return e, ok
}

// Paths returns the entry paths in lexicographic order.
func (m *Manifest) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// Entries returns the entries in lexicographic path order.
func (m *Manifest) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.paths))
	for _, p := range m.paths {
		out = append(out, m.entries[p])
	}
	return out
}

// EqualEntries reports whether both manifests record the same paths with the
// same hashes. Roots, sizes, and generation times are not compared.
func (m *Manifest) EqualEntries(other *Manifest) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if len(m.entries) != len(other.entries) {
		return false
	}
	for p, e := range m.entries {
		if o, ok := other.entries[p]; !ok || o.Hash != e.Hash {
			return false
		}
	}
	return true
}

// filePath returns the backend path of an entry's file.
func (m *Manifest) filePath(relPath string) string {
	return path.Join(m.root, relPath)
}

// setEntries replaces the entry set with the given snapshot. paths must be
// the sorted keys of entries.
func (m *Manifest) setEntries(entries map[string]Entry, paths []string, generatedAt time.Time) {
	m.mu.Lock()
	m.entries = entries
	m.paths = paths
	m.generatedAt = generatedAt
	m.mu.Unlock()
}
