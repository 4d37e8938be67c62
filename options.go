package manifestly

import (
	"github.com/gdoermann/manifestly/config"
)

// settings carries the per-manifest configuration resolved from options.
type settings struct {
	algorithm    string
	chunkSize    int
	concurrency  int
	format       string
	manifestName string
	ignoreName   string
	exclude      []string
	include      []string
	root         string
}

func defaultSettings() settings {
	return fromConfig(config.Default())
}

func fromConfig(c config.Settings) settings {
	return settings{
		algorithm:    c.Algorithm,
		chunkSize:    c.ChunkSize,
		concurrency:  c.Concurrency,
		format:       c.Format,
		manifestName: c.ManifestName,
		ignoreName:   c.IgnoreName,
		exclude:      c.Exclude,
		include:      c.Include,
	}
}

// Option configures manifest generation and loading.
type Option func(*settings)

// WithSettings applies a resolved configuration value wholesale. Later
// options override individual fields.
func WithSettings(c config.Settings) Option {
	return func(s *settings) {
		*s = fromConfig(c)
	}
}

// WithAlgorithm sets the hash algorithm name.
func WithAlgorithm(algorithm string) Option {
	return func(s *settings) {
		if algorithm != "" {
			s.algorithm = algorithm
		}
	}
}

// WithChunkSize sets the read size in bytes for chunked hashing.
func WithChunkSize(chunkSize int) Option {
	return func(s *settings) {
		if chunkSize > 0 {
			s.chunkSize = chunkSize
		}
	}
}

// WithConcurrency bounds the scan worker pool.
func WithConcurrency(concurrency int) Option {
	return func(s *settings) {
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// WithFormat selects the manifest serialization format (json or yaml).
func WithFormat(format string) Option {
	return func(s *settings) {
		if format != "" {
			s.format = format
		}
	}
}

// WithManifestName sets the manifest filename excluded from scans.
func WithManifestName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.manifestName = name
		}
	}
}

// WithExcludePatterns appends explicit exclusion patterns. They take
// precedence over the ignore file at the root.
func WithExcludePatterns(patterns ...string) Option {
	return func(s *settings) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// WithIncludePatterns appends explicit re-inclusion patterns. They take
// final precedence, re-admitting paths excluded by any earlier rule.
func WithIncludePatterns(patterns ...string) Option {
	return func(s *settings) {
		s.include = append(s.include, patterns...)
	}
}

// WithRoot overrides the tree root a loaded manifest refers to. Without it,
// Load assumes the manifest file's parent directory.
func WithRoot(root string) Option {
	return func(s *settings) {
		s.root = root
	}
}
