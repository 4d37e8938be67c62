package manifestly

import (
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gdoermann/manifestly/config"
	merrors "github.com/gdoermann/manifestly/errors"
	"github.com/gdoermann/manifestly/fs"
	"github.com/gdoermann/manifestly/fs/billy"
	"github.com/gdoermann/manifestly/fs/miniofs"
)

// Location binds a filesystem to the path within it a manifest operation
// should act on.
type Location struct {
	FS   fs.Filesystem
	Path string
}

// Resolve maps a location string onto a filesystem and path. Strings with
// an s3:// or minio:// scheme resolve to an object-store filesystem scoped
// to the named bucket, with the remainder as the key prefix; everything
// else is a local path made absolute.
func Resolve(location string, s3 config.S3Settings) (*Location, error) {
	scheme, rest, ok := splitScheme(location)
	if !ok {
		abs, err := fs.GetAbs(location)
		if err != nil {
			return nil, merrors.NewPathError("resolve", location, err)
		}
		return &Location{FS: billy.NewBaseOSFS(), Path: abs}, nil
	}

	switch scheme {
	case "s3", "minio":
		return resolveObjectStore(location, rest, s3)
	case "file":
		abs, err := fs.GetAbs(rest)
		if err != nil {
			return nil, merrors.NewPathError("resolve", location, err)
		}
		return &Location{FS: billy.NewBaseOSFS(), Path: abs}, nil
	default:
		return nil, merrors.NewPathError("resolve", location,
			fmt.Errorf("unsupported location scheme %q", scheme))
	}
}

func resolveObjectStore(location, rest string, s3 config.S3Settings) (*Location, error) {
	if s3.Endpoint == "" {
		return nil, merrors.NewPathError("resolve", location,
			fmt.Errorf("%w: no object store endpoint configured (set %s)",
				merrors.ErrAuthFailed, config.EnvS3Endpoint))
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
	if bucket == "" {
		return nil, merrors.NewPathError("resolve", location,
			fmt.Errorf("object store location needs a bucket"))
	}

	client, err := minio.New(s3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
		Secure: s3.UseSSL,
	})
	if err != nil {
		return nil, merrors.NewPathError("resolve", location,
			fmt.Errorf("%w: %v", merrors.ErrRemoteBackend, err))
	}

	return &Location{FS: miniofs.NewFromClient(client, bucket), Path: strings.TrimSuffix(prefix, "/")}, nil
}

func splitScheme(location string) (scheme, rest string, ok bool) {
	i := strings.Index(location, "://")
	if i <= 0 {
		return "", location, false
	}
	return strings.ToLower(location[:i]), location[i+3:], true
}
