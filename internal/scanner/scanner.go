// Package scanner walks a root location through the storage capability and
// produces one hashed entry per admitted regular file.
//
// Hashing independent files has no shared mutable state, so the scanner fans
// work out to a bounded worker pool. Results are merged and sorted after all
// workers finish, which makes the output deterministic regardless of
// scheduling order.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs"
	"github.com/gdoermann/manifestly/internal/hasher"
	"github.com/gdoermann/manifestly/internal/ignore"
)

// Entry is one scanned file: its normalized relative path, size, and
// content hash.
type Entry struct {
	Path string
	Size int64
	Hash string
}

// Options configures a scan.
type Options struct {
	// Algorithm is the hash algorithm name. Validated before any file is read.
	Algorithm string

	// ChunkSize is the read size for chunked hashing.
	ChunkSize int

	// Concurrency bounds the hashing worker pool. Values below one fall
	// back to a single worker.
	Concurrency int

	// Matcher filters relative paths. A nil matcher admits everything.
	Matcher *ignore.Matcher
}

// candidate is a file admitted by the walk, waiting to be hashed.
type candidate struct {
	path string // backend path
	rel  string // normalized relative path
	size int64
}

// Scan walks root, applies the ignore matcher, and hashes every admitted
// regular file. Symbolic links and other non-regular files are skipped.
// Per-file failures are collected and attributed to their path; the scan
// continues past them and the aggregate is returned alongside the entries
// that did succeed. Entries come back in lexicographic path order, so
// repeated scans of an unchanged tree are byte-identical.
func Scan(ctx context.Context, fsys fs.Filesystem, root string, opts Options) ([]Entry, error) {
	if !hasher.Supported(opts.Algorithm) {
		return nil, merrors.New("scan", merrors.ErrUnsupportedAlgorithm).WithPath(opts.Algorithm)
	}

	exists, err := fsys.Exists(root)
	if err != nil {
		return nil, merrors.NewPathError("scan", root, err)
	}
	if !exists {
		return nil, merrors.NewPathError("scan", root, merrors.ErrPathNotFound)
	}

	candidates, perr := collect(fsys, root, opts.Matcher)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		entries = make([]Entry, 0, len(candidates))
		sem     = make(chan struct{}, concurrency)
	)

	for _, c := range candidates {
		// Stop scheduling new work once the caller cancels; in-flight
		// hashes run to completion.
		if ctx.Err() != nil {
			wg.Wait()
			return nil, merrors.New("scan", ctx.Err())
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, merrors.New("scan", ctx.Err())
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(c candidate) {
			defer func() {
				<-sem
				wg.Done()
			}()

			entry, err := hashCandidate(fsys, c, opts)
			if err != nil {
				perr.Add(c.rel, err)
				return
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	// Merge order is the final sort, not completion order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return entries, perr.Err()
}

// collect walks the tree and gathers admitted files. Walk errors on
// individual paths are recorded and the walk continues.
func collect(fsys fs.Filesystem, root string, matcher *ignore.Matcher) ([]candidate, *merrors.PathErrors) {
	perr := &merrors.PathErrors{}
	var candidates []candidate

	walkErr := fsys.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			perr.Add(Rel(root, p), classify(err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		// Skip symlinks and other non-regular files.
		if !info.Mode().IsRegular() {
			return nil
		}

		rel := Rel(root, p)
		if rel == "" {
			return nil
		}
		if matcher != nil && matcher.Match(rel) {
			return nil
		}

		candidates = append(candidates, candidate{path: p, rel: rel, size: info.Size()})
		return nil
	})
	if walkErr != nil {
		perr.Add(".", classify(walkErr))
	}

	return candidates, perr
}

// hashCandidate opens and hashes one file.
func hashCandidate(fsys fs.Filesystem, c candidate, opts Options) (Entry, error) {
	f, err := fsys.Open(c.path)
	if err != nil {
		return Entry{}, classify(err)
	}
	defer func() {
		_ = f.Close()
	}()

	digest, err := hasher.Hash(f, opts.Algorithm, opts.ChunkSize)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: c.rel, Size: c.size, Hash: digest}, nil
}

// classify maps backend errors onto the manifestly error taxonomy.
func classify(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", merrors.ErrPermissionDenied, err)
	}
	return err
}

// Rel normalizes p relative to root: forward-slash separated, no leading
// "./" or "/". Returns "" for the root itself.
func Rel(root, p string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(p), filepath.ToSlash(root))
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "./")
	if rel == "." {
		return ""
	}
	return rel
}
