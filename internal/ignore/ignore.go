// Package ignore compiles include/exclude glob patterns into a predicate
// over relative paths. Rules form an ordered list evaluated last-match-wins,
// mirroring gitignore precedence: a later negated pattern re-admits a path
// excluded by an earlier rule.
package ignore

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/gdoermann/manifestly/fs"
)

// Rule is one compiled pattern with its polarity. Negated rules re-include
// paths excluded by earlier rules.
type Rule struct {
	Pattern string
	Negate  bool

	compiled glob.Glob
	dirOnly  bool
	anchored bool
}

// Matcher evaluates an ordered rule list against relative paths.
type Matcher struct {
	rules []Rule
}

// New creates an empty matcher that ignores nothing.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern appends a pattern to the rule list. A leading '!' marks the
// pattern as a re-inclusion. Blank lines and '#' comments are skipped.
func (m *Matcher) AddPattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return nil
	}

	negate := false
	if strings.HasPrefix(pattern, "!") {
		negate = true
		pattern = pattern[1:]
	}
	return m.add(pattern, negate)
}

// AddExcludes appends plain exclusion patterns in order.
func (m *Matcher) AddExcludes(patterns []string) error {
	for _, p := range patterns {
		if err := m.AddPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// AddIncludes appends re-inclusion patterns in order. They take precedence
// over every earlier rule for the paths they match.
func (m *Matcher) AddIncludes(patterns []string) error {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := m.add(strings.TrimPrefix(p, "!"), true); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) add(pattern string, negate bool) error {
	r := Rule{Pattern: pattern, Negate: negate}

	p := strings.TrimSuffix(pattern, "/")
	r.dirOnly = p != pattern
	r.anchored = strings.Contains(p, "/")

	var err error
	if r.anchored {
		// Anchored patterns match against the full relative path; '*' stops
		// at path separators, '**' crosses them.
		r.compiled, err = glob.Compile(strings.TrimPrefix(p, "/"), '/')
	} else {
		// Bare patterns match any single path segment.
		r.compiled, err = glob.Compile(p)
	}
	if err != nil {
		return fmt.Errorf("ignore: invalid pattern %q: %w", pattern, err)
	}

	m.rules = append(m.rules, r)
	return nil
}

// Match reports whether relPath should be ignored. relPath must be
// normalized: forward-slash separated, no leading "./".
func (m *Matcher) Match(relPath string) bool {
	relPath = strings.TrimPrefix(relPath, "./")

	ignored := false
	for _, r := range m.rules {
		if !r.matches(relPath) {
			continue
		}
		ignored = !r.Negate
	}
	return ignored
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

func (r *Rule) matches(relPath string) bool {
	if r.anchored {
		if r.compiled.Match(relPath) && !r.dirOnly {
			return true
		}
		// Directory patterns cover everything beneath them, but not a plain
		// file sharing the directory's name.
		pattern := strings.TrimSuffix(r.Pattern, "/")
		if r.dirOnly && strings.HasPrefix(relPath+"/", strings.TrimPrefix(pattern, "/")+"/") && relPath != strings.TrimPrefix(pattern, "/") {
			return true
		}
		return false
	}

	// Unanchored patterns match any path segment, so "build" excludes both
	// "build/a.o" and "src/build/a.o". A directory pattern must match a
	// non-final segment: only files under the directory are covered.
	segments := strings.Split(relPath, "/")
	for i, segment := range segments {
		if r.dirOnly && i == len(segments)-1 {
			break
		}
		if r.compiled.Match(segment) {
			return true
		}
	}
	return false
}

// LoadPatterns reads newline-separated patterns from an ignore file on the
// given filesystem. A missing file yields no patterns and no error.
func LoadPatterns(fsys fs.Filesystem, path string) ([]string, error) {
	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("ignore: check %q: %w", path, err)
	}
	if !exists {
		return nil, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ignore: read %q: %w", path, err)
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}
