package miniofs

import (
	"fmt"
	"io/fs"

	"github.com/minio/minio-go/v7"

	merrors "github.com/gdoermann/manifestly/errors"
)

// translateError maps MinIO response codes onto the manifestly error
// taxonomy so callers can classify failures without knowing the backend.
// Missing keys become fs.ErrNotExist (wrapped in ErrPathNotFound),
// credential rejections become ErrAuthFailed, and everything else is a
// transient ErrRemoteBackend eligible for retry.
func translateError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return &fs.PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", merrors.ErrPathNotFound, fs.ErrNotExist)}
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return merrors.NewPathError(op, path, fmt.Errorf("%w: %s", merrors.ErrAuthFailed, resp.Message))
	default:
		return merrors.NewPathError(op, path, fmt.Errorf("%w: %w", merrors.ErrRemoteBackend, err))
	}
}

// isNoSuchKey reports whether err is a missing-object response.
func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
