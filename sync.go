package manifestly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/internal/hasher"
)

// syncConfig is resolved from SyncOptions.
type syncConfig struct {
	dryRun      bool
	refresh     bool
	concurrency int
	maxRetries  uint64
}

// SyncOption configures a sync run.
type SyncOption func(*syncConfig)

// WithDryRun plans the sync but executes nothing.
func WithDryRun() SyncOption {
	return func(c *syncConfig) { c.dryRun = true }
}

// WithRefresh rescans the source tree before planning, so the plan reflects
// the current disk state rather than the loaded manifest.
func WithRefresh() SyncOption {
	return func(c *syncConfig) { c.refresh = true }
}

// WithSyncConcurrency bounds the copy worker pool.
func WithSyncConcurrency(n int) SyncOption {
	return func(c *syncConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// SyncResult reports what a sync run planned and did.
type SyncResult struct {
	// Plan is the operation list derived from the manifest diff.
	Plan *SyncPlan

	// Copied and Deleted count the operations that completed.
	Copied  int
	Deleted int

	// DryRun marks a run that planned but executed nothing.
	DryRun bool

	// Duration covers planning and execution.
	Duration time.Duration
}

// Sync makes the target tree match the source tree. It diffs the two
// manifests, plans copies and deletes, and executes the plan: copies run on
// a bounded worker pool, each written to a temp file and renamed into place
// so a reader never observes a partially copied file. Every copy is
// re-hashed after landing and retried once on mismatch.
//
// Per-path failures do not abort the run; they are attributed to their paths
// and returned as an aggregate after all operations finish. On success the
// target manifest's entries are updated in memory to the synced state —
// persisting them is the caller's call.
func Sync(ctx context.Context, source, target *Manifest, opts ...SyncOption) (*SyncResult, error) {
	cfg := syncConfig{
		concurrency: source.settings.concurrency,
		maxRetries:  3,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}

	start := time.Now()

	if cfg.refresh {
		if err := source.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	diff, err := Diff(source, target)
	if err != nil {
		return nil, err
	}
	plan := BuildPlan(diff)

	result := &SyncResult{Plan: plan, DryRun: cfg.dryRun}
	if cfg.dryRun || plan.Empty() {
		result.Duration = time.Since(start)
		return result, nil
	}

	perr := &merrors.PathErrors{}
	copied := executeCopies(ctx, source, target, plan, cfg, perr)
	deleted := executeDeletes(target, plan, perr)

	// Fold the outcome back into the target's entry set so a subsequent
	// Save persists the synced state.
	target.mu.Lock()
	for p := range copied {
		if e, ok := source.Lookup(p); ok {
			target.entries[p] = e
		}
	}
	for p := range deleted {
		delete(target.entries, p)
	}
	target.paths = sortedKeys(target.entries)
	target.generatedAt = time.Now().UTC()
	target.mu.Unlock()

	result.Copied = len(copied)
	result.Deleted = len(deleted)
	result.Duration = time.Since(start)

	return result, perr.Err()
}

// executeCopies runs the plan's copies on a bounded pool and returns the
// set of paths that landed.
func executeCopies(ctx context.Context, source, target *Manifest, plan *SyncPlan, cfg syncConfig, perr *merrors.PathErrors) map[string]struct{} {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, cfg.concurrency)
		copied = make(map[string]struct{})
	)

	for _, op := range plan.Operations {
		if op.Type != OpCopy {
			continue
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			perr.Add(op.Path, ctx.Err())
			return copied
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(relPath string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := copyWithRetry(ctx, source, target, relPath, cfg.maxRetries); err != nil {
				perr.Add(relPath, err)
				return
			}
			mu.Lock()
			copied[relPath] = struct{}{}
			mu.Unlock()
		}(op.Path)
	}
	wg.Wait()

	return copied
}

// executeDeletes removes the plan's delete paths from the target tree.
// Already-absent files count as deleted.
func executeDeletes(target *Manifest, plan *SyncPlan, perr *merrors.PathErrors) map[string]struct{} {
	deleted := make(map[string]struct{})

	for _, op := range plan.Operations {
		if op.Type != OpDelete {
			continue
		}

		err := target.fsys.Remove(target.filePath(op.Path))
		if err != nil && !merrors.IsNotFound(err) && !errors.Is(err, os.ErrNotExist) {
			perr.Add(op.Path, err)
			continue
		}
		deleted[op.Path] = struct{}{}
	}

	return deleted
}

// copyWithRetry wraps copyFile in exponential backoff for transient remote
// failures. Non-retryable errors stop immediately; an integrity mismatch is
// retried exactly once.
func copyWithRetry(ctx context.Context, source, target *Manifest, relPath string, maxRetries uint64) error {
	integrityRetried := false

	op := func() error {
		err := copyFile(source, target, relPath)
		if err == nil {
			return nil
		}
		if errors.Is(err, merrors.ErrIntegrityMismatch) && !integrityRetried {
			integrityRetried = true
			return err
		}
		if merrors.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(op, policy)
}

// copyFile copies one file from the source tree into the target tree
// atomically and verifies the landed content against the source hash.
func copyFile(source, target *Manifest, relPath string) error {
	expected, ok := source.Lookup(relPath)
	if !ok {
		return merrors.NewPathError("copy", relPath, merrors.ErrPathNotFound)
	}

	src, err := source.fsys.Open(source.filePath(relPath))
	if err != nil {
		return merrors.NewPathError("copy", relPath, err)
	}
	defer func() {
		_ = src.Close()
	}()

	destPath := target.filePath(relPath)
	destDir := path.Dir(destPath)
	if err := target.fsys.MkdirAll(destDir, 0o755); err != nil {
		return merrors.NewPathError("copy", relPath, err)
	}

	tmp, err := target.fsys.TempFile(destDir, path.Base(relPath)+".")
	if err != nil {
		return merrors.NewPathError("copy", relPath, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = target.fsys.Remove(tmpName)
		return merrors.NewPathError("copy", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = target.fsys.Remove(tmpName)
		return merrors.NewPathError("copy", relPath, err)
	}
	if err := target.fsys.Rename(tmpName, destPath); err != nil {
		_ = target.fsys.Remove(tmpName)
		return merrors.NewPathError("copy", relPath, err)
	}

	return verifyCopy(target, destPath, relPath, expected.Hash)
}

// verifyCopy re-reads the landed file and checks it against the source hash.
// A bad copy is removed rather than left visible.
func verifyCopy(target *Manifest, destPath, relPath, expectedHash string) error {
	f, err := target.fsys.Open(destPath)
	if err != nil {
		return merrors.NewPathError("verify", relPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	digest, err := hasher.Hash(f, target.settings.algorithm, target.settings.chunkSize)
	if err != nil {
		return merrors.NewPathError("verify", relPath, err)
	}
	if digest != expectedHash {
		_ = target.fsys.Remove(destPath)
		return merrors.NewPathError("verify", relPath,
			fmt.Errorf("%w: got %s, want %s", merrors.ErrIntegrityMismatch, digest, expectedHash))
	}
	return nil
}

func sortedKeys(entries map[string]Entry) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
