package manifestly

import (
	"context"
	"sort"

	merrors "github.com/gdoermann/manifestly/errors"
)

// DiffResult classifies every path from a source/target manifest pair. Each
// path appears in exactly one list; all four are lexicographically sorted.
//
// The JSON form carries only the three change classes. It is the diff
// metadata written by WriteDiff and embedded in archives.
type DiffResult struct {
	// Added paths exist in the source but not the target.
	Added []string `json:"added"`

	// Removed paths exist in the target but not the source.
	Removed []string `json:"removed"`

	// Changed paths exist in both with differing hashes.
	Changed []string `json:"changed"`

	// Unchanged paths exist in both with equal hashes.
	Unchanged []string `json:"-"`
}

// Empty reports whether the two manifests were identical.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares two manifests of the same algorithm and classifies every
// path. Sizes are ignored; hash equality alone decides changed vs unchanged.
func Diff(source, target *Manifest) (*DiffResult, error) {
	if source.Algorithm() != target.Algorithm() {
		return nil, merrors.New("diff", merrors.ErrAlgorithmMismatch).
			WithPath(source.Algorithm() + " vs " + target.Algorithm())
	}

	d := &DiffResult{
		Added:     []string{},
		Removed:   []string{},
		Changed:   []string{},
		Unchanged: []string{},
	}

	for _, p := range source.Paths() {
		src, _ := source.Lookup(p)
		tgt, ok := target.Lookup(p)
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case src.Hash != tgt.Hash:
			d.Changed = append(d.Changed, p)
		default:
			d.Unchanged = append(d.Unchanged, p)
		}
	}

	for _, p := range target.Paths() {
		if _, ok := source.Lookup(p); !ok {
			d.Removed = append(d.Removed, p)
		}
	}

	// Paths() is already sorted, but keep the guarantee local.
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	sort.Strings(d.Unchanged)

	return d, nil
}

// Changed rescans the manifest's root and diffs the fresh state against the
// persisted entries: Added is on disk but not recorded, Removed is recorded
// but gone from disk, Changed is content drift. The manifest itself is not
// modified.
func (m *Manifest) Changed(ctx context.Context) (*DiffResult, error) {
	fresh := newManifest(m.fsys, m.root)
	fresh.settings = m.settings

	if err := fresh.Refresh(ctx); err != nil {
		return nil, err
	}
	return Diff(fresh, m)
}
