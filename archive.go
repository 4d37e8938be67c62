package manifestly

import (
	"archive/zip"
	"encoding/json"
	"io"
	"sort"

	merrors "github.com/gdoermann/manifestly/errors"
)

// DiffEntryName is the archive member holding the diff metadata.
const DiffEntryName = ".manifestly.diff"

// BuildArchive writes a zip containing every added and changed file from the
// source tree under its relative path, plus a DiffEntryName member with the
// diff metadata JSON. Removed paths carry no content; they appear only in
// the metadata. Entries are written in lexicographic order so the same diff
// always produces the same member sequence.
func BuildArchive(diff *DiffResult, source *Manifest, w io.Writer) error {
	paths := make([]string, 0, len(diff.Added)+len(diff.Changed))
	paths = append(paths, diff.Added...)
	paths = append(paths, diff.Changed...)
	sort.Strings(paths)

	zw := zip.NewWriter(w)

	for _, p := range paths {
		if err := addArchiveFile(zw, source, p); err != nil {
			_ = zw.Close()
			return err
		}
	}

	meta, err := json.MarshalIndent(diff, "", "  ")
	if err != nil {
		return merrors.NewPathError("archive", DiffEntryName, err)
	}
	entry, err := zw.Create(DiffEntryName)
	if err != nil {
		_ = zw.Close()
		return merrors.NewPathError("archive", DiffEntryName, err)
	}
	if _, err := entry.Write(append(meta, '\n')); err != nil {
		_ = zw.Close()
		return merrors.NewPathError("archive", DiffEntryName, err)
	}

	if err := zw.Close(); err != nil {
		return merrors.New("archive", err)
	}
	return nil
}

func addArchiveFile(zw *zip.Writer, source *Manifest, relPath string) error {
	f, err := source.fsys.Open(source.filePath(relPath))
	if err != nil {
		return merrors.NewPathError("archive", relPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	entry, err := zw.Create(relPath)
	if err != nil {
		return merrors.NewPathError("archive", relPath, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return merrors.NewPathError("archive", relPath, err)
	}
	return nil
}
