// Package manifestly builds content-addressed manifests of directory trees
// and uses manifest pairs to detect, describe, and apply content-based
// differences between two directory states.
//
// A Manifest maps normalized relative paths to content hashes. Manifests are
// produced by scanning a root through the storage capability in fs (local
// disk, in-memory, or S3-compatible object stores), persisted through Load
// and Save, and compared with Diff. A DiffResult drives the three planners:
// Sync copies and deletes files to make a target match a source, BuildPatch
// renders a textual unified diff, and BuildArchive packages the changed
// content into a zip.
package manifestly
