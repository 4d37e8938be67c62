package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdoermann/manifestly/fs/billy"
)

func TestMatcher_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		ignored  bool
	}{
		{"no rules", nil, "a.txt", false},
		{"extension glob", []string{"*.log"}, "debug.log", true},
		{"extension glob nested", []string{"*.log"}, "logs/debug.log", true},
		{"extension glob miss", []string{"*.log"}, "debug.txt", false},
		{"bare name matches any segment", []string{"node_modules"}, "src/node_modules/x.js", true},
		{"anchored single star stops at separator", []string{"docs/*.md"}, "docs/readme.md", true},
		{"anchored single star no descent", []string{"docs/*.md"}, "docs/sub/readme.md", false},
		{"double star crosses separators", []string{"docs/**"}, "docs/sub/deep/readme.md", true},
		{"directory pattern covers subtree", []string{"build/"}, "build/obj/a.o", true},
		{"directory pattern exact", []string{"build/"}, "build", false},
		{"negation re-includes", []string{"*.log", "!keep.log"}, "keep.log", false},
		{"negation order matters", []string{"!keep.log", "*.log"}, "keep.log", true},
		{"later rule wins", []string{"tmp/", "!tmp/keep.txt"}, "tmp/keep.txt", false},
		{"leading dot-slash normalized", []string{"*.log"}, "./x.log", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for _, p := range tt.patterns {
				require.NoError(t, m.AddPattern(p))
			}
			assert.Equal(t, tt.ignored, m.Match(tt.path))
		})
	}
}

func TestMatcher_CommentsAndBlanks(t *testing.T) {
	m := New()
	require.NoError(t, m.AddPattern("# a comment"))
	require.NoError(t, m.AddPattern("   "))
	require.NoError(t, m.AddPattern("*.tmp"))

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Match("x.tmp"))
}

func TestMatcher_IncludesTakeFinalPrecedence(t *testing.T) {
	m := New()
	require.NoError(t, m.AddExcludes([]string{"*.log", "cache/"}))
	require.NoError(t, m.AddIncludes([]string{"cache/keep.db"}))

	assert.True(t, m.Match("a.log"))
	assert.True(t, m.Match("cache/drop.db"))
	assert.False(t, m.Match("cache/keep.db"))
}

func TestMatcher_InvalidPattern(t *testing.T) {
	m := New()
	err := m.AddPattern("[unclosed")
	require.Error(t, err)
}

func TestLoadPatterns(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	content := "# ignore build artifacts\n*.o\n\nbuild/\r\n!build/keep.txt\n"
	require.NoError(t, fsys.WriteFile("/src/.manifestlyignore", []byte(content), 0o644))

	patterns, err := LoadPatterns(fsys, "/src/.manifestlyignore")
	require.NoError(t, err)
	assert.Equal(t, []string{"# ignore build artifacts", "*.o", "build/", "!build/keep.txt"}, patterns)
}

func TestLoadPatterns_MissingFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()

	patterns, err := LoadPatterns(fsys, "/src/.manifestlyignore")
	require.NoError(t, err)
	assert.Nil(t, patterns)
}
