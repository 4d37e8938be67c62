// Package hasher computes content hashes over byte streams. Algorithms are
// selected by name through a registry so new digests can be added without
// touching callers; unknown names are rejected at configuration time.
package hasher

import (
	"crypto/md5"  //nolint:gosec // registry offers legacy digests for interop, not security.
	"crypto/sha1" //nolint:gosec // see above.
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	merrors "github.com/gdoermann/manifestly/errors"
)

// DefaultChunkSize is the read size used when callers pass a non-positive
// chunk size.
const DefaultChunkSize = 8192

// registry maps algorithm names to streaming digest constructors.
var registry = map[string]func() hash.Hash{
	"md5":      md5.New,
	"sha1":     sha1.New,
	"sha224":   sha256.New224,
	"sha256":   sha256.New,
	"sha384":   sha512.New384,
	"sha512":   sha512.New,
	"sha3-224": sha3.New224,
	"sha3-256": sha3.New256,
	"sha3-384": sha3.New384,
	"sha3-512": sha3.New512,
	"shake128": func() hash.Hash { return &shakeHash{h: sha3.NewShake128(), size: 32, block: 168} },
	"shake256": func() hash.Hash { return &shakeHash{h: sha3.NewShake256(), size: 64, block: 136} },
	// blake2b defaults to a 64-byte digest and blake2s to 32 bytes, the same
	// sizes hashlib uses, so manifests hash-compare across implementations.
	"blake2b": func() hash.Hash { h, _ := blake2b.New512(nil); return h },
	"blake2s": func() hash.Hash { h, _ := blake2s.New256(nil); return h },
}

// New returns a fresh streaming digest for the named algorithm.
//
//nolint:ireturn // hash.Hash is the stdlib digest contract.
func New(algorithm string) (hash.Hash, error) {
	ctor, ok := registry[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", merrors.ErrUnsupportedAlgorithm, algorithm)
	}
	return ctor(), nil
}

// Supported reports whether the named algorithm is registered.
func Supported(algorithm string) bool {
	_, ok := registry[algorithm]
	return ok
}

// Algorithms returns the registered algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hash streams r through the named digest in chunkSize reads, bounding
// memory use at O(chunkSize) regardless of stream length, and returns the
// hex-encoded digest.
func Hash(r io.Reader, algorithm string, chunkSize int) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// shakeHash adapts the variable-output SHAKE functions to the fixed-size
// hash.Hash contract. Sum reads from a clone so the digest stays streamable.
type shakeHash struct {
	h     sha3.ShakeHash
	size  int
	block int
}

func (s *shakeHash) Write(p []byte) (int, error) { return s.h.Write(p) }

func (s *shakeHash) Sum(b []byte) []byte {
	clone := s.h.Clone()
	out := make([]byte, s.size)
	_, _ = clone.Read(out)
	return append(b, out...)
}

func (s *shakeHash) Reset()         { s.h.Reset() }
func (s *shakeHash) Size() int      { return s.size }
func (s *shakeHash) BlockSize() int { return s.block }
