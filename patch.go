package manifestly

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs"
)

// BuildPatch writes a unified diff describing how to turn the target tree's
// content into the source tree's content, one hunk block per differing path
// in lexicographic order. Added files diff against empty content, removed
// files diff to empty content, and binary files produce a one-line marker
// instead of hunks.
func BuildPatch(diff *DiffResult, source, target *Manifest, w io.Writer) error {
	type side struct {
		hasOld bool
		hasNew bool
	}
	paths := map[string]side{}
	for _, p := range diff.Changed {
		paths[p] = side{hasOld: true, hasNew: true}
	}
	for _, p := range diff.Added {
		paths[p] = side{hasNew: true}
	}
	for _, p := range diff.Removed {
		paths[p] = side{hasOld: true}
	}

	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	for _, p := range ordered {
		s := paths[p]

		var oldData, newData []byte
		var err error
		if s.hasOld {
			oldData, err = target.fsys.ReadFile(target.filePath(p))
			if err != nil {
				return merrors.NewPathError("patch", p, err)
			}
		}
		if s.hasNew {
			newData, err = source.fsys.ReadFile(source.filePath(p))
			if err != nil {
				return merrors.NewPathError("patch", p, err)
			}
		}

		if !isTextual(oldData) || !isTextual(newData) {
			if _, err := fmt.Fprintf(w, "Binary files a/%s and b/%s differ\n", p, p); err != nil {
				return merrors.NewPathError("patch", p, err)
			}
			continue
		}

		edits := myers.ComputeEdits(span.URIFromPath(p), string(oldData), string(newData))
		unified := gotextdiff.ToUnified("a/"+p, "b/"+p, string(oldData), edits)
		if _, err := fmt.Fprint(w, unified); err != nil {
			return merrors.NewPathError("patch", p, err)
		}
	}

	return nil
}

// isTextual reports whether content can be rendered as a line diff. Empty
// content counts as text so added and removed files diff cleanly.
func isTextual(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

// WriteDiff persists a diff as JSON metadata: the added, removed, and
// changed path lists. Same atomic write discipline as Save.
func WriteDiff(fsys fs.Filesystem, diff *DiffResult, location string) error {
	data, err := json.MarshalIndent(diff, "", "  ")
	if err != nil {
		return merrors.NewPathError("diff", location, err)
	}
	data = append(data, '\n')

	dir := path.Dir(location)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return merrors.NewPathError("diff", dir, err)
	}

	tmp, err := fsys.TempFile(dir, path.Base(location)+".")
	if err != nil {
		return merrors.NewPathError("diff", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("diff", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("diff", tmpName, err)
	}
	if err := fsys.Rename(tmpName, location); err != nil {
		_ = fsys.Remove(tmpName)
		return merrors.NewPathError("diff", location, err)
	}
	return nil
}
