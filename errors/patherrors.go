package errors

import (
	"sort"
	"strings"
	"sync"
)

// PathError is one failed unit of work, attributed to its relative path.
type PathError struct {
	Path string
	Err  error
}

// PathErrors collects per-path failures from many independent file
// operations. The overall operation fails only if the set is non-empty after
// all units complete; callers report the full set rather than the first
// failure. Add is safe for concurrent use.
type PathErrors struct {
	mu   sync.Mutex
	errs []PathError
}

// Add records a failure for path.
func (p *PathErrors) Add(path string, err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs = append(p.errs, PathError{Path: path, Err: err})
	p.mu.Unlock()
}

// Len returns the number of recorded failures.
func (p *PathErrors) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errs)
}

// All returns the recorded failures sorted by path.
func (p *PathErrors) All() []PathError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PathError, len(p.errs))
	copy(out, p.errs)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Err returns the aggregate as an error, or nil if no failures were recorded.
func (p *PathErrors) Err() error {
	if p.Len() == 0 {
		return nil
	}
	return p
}

// Error implements the error interface, reporting every path in the set.
func (p *PathErrors) Error() string {
	all := p.All()
	parts := make([]string, 0, len(all))
	for _, pe := range all {
		parts = append(parts, pe.Path+": "+pe.Err.Error())
	}
	return "manifestly: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying errors so errors.Is can match sentinel
// errors recorded for any path.
func (p *PathErrors) Unwrap() []error {
	all := p.All()
	out := make([]error, 0, len(all))
	for _, pe := range all {
		out = append(out, pe.Err)
	}
	return out
}
