// Package errors provides error types and handling for manifest operations.
// It wraps underlying storage and hashing errors with the operation and the
// relative path they belong to, and classifies failures for retry decisions.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a manifest operation error with context about the
// operation that failed and the path it was operating on.
type Error struct {
	// Op is the operation that failed (e.g., "scan", "copy", "load")
	Op string

	// Path is the file or location the operation was acting on (if applicable)
	Path string

	// Err is the underlying error from the storage backend or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("manifestly.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("manifestly.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPath adds path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// New creates a new Error with the given operation and underlying error.
func New(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewPathError creates a new Error with path context.
func NewPathError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for common manifest operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrPathNotFound indicates a scan root or requested path does not exist
	ErrPathNotFound = errors.New("manifestly: path not found")

	// ErrManifestNotFound indicates no manifest file exists at the location
	ErrManifestNotFound = errors.New("manifestly: manifest not found")

	// ErrUnsupportedAlgorithm indicates the hash algorithm name is unknown
	ErrUnsupportedAlgorithm = errors.New("manifestly: unsupported hash algorithm")

	// ErrUnsupportedFormat indicates the manifest output format is unknown
	ErrUnsupportedFormat = errors.New("manifestly: unsupported manifest format")

	// ErrPermissionDenied indicates a file could not be read or written
	ErrPermissionDenied = errors.New("manifestly: permission denied")

	// ErrRemoteBackend indicates a transient remote storage failure
	ErrRemoteBackend = errors.New("manifestly: remote backend error")

	// ErrAuthFailed indicates the remote backend rejected our credentials
	ErrAuthFailed = errors.New("manifestly: authentication failed")

	// ErrIntegrityMismatch indicates a post-copy re-hash did not match the
	// expected source hash
	ErrIntegrityMismatch = errors.New("manifestly: integrity mismatch")

	// ErrAlgorithmMismatch indicates two manifests being diffed were built
	// with different hash algorithms
	ErrAlgorithmMismatch = errors.New("manifestly: algorithm mismatch")

	// ErrMalformedManifest indicates a manifest file could not be decoded
	ErrMalformedManifest = errors.New("manifestly: malformed manifest")
)

// IsNotFound checks if an error indicates that a path or manifest was not
// found. This is a convenience function that handles wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrManifestNotFound)
}

// IsRetryable reports whether an operation that failed with err may succeed
// on retry. Transient remote backend failures are retryable; authentication
// failures and configuration errors never are.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrUnsupportedAlgorithm) {
		return false
	}
	return errors.Is(err, ErrRemoteBackend)
}
