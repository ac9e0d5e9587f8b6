// Package store abstracts the shared object storage used for cross-workspace
// model exchange. Backends exist for GCS, S3, and the local filesystem. All
// operations are blocking, context-bounded, and single attempt: a failed
// upload or download surfaces to the caller unmodified, with no retry.
package store

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by Get when no object exists at the key.
var ErrKeyNotFound = errors.New("object not found")

// Store reads and writes blobs in a single bucket or root.
type Store interface {
	// Put writes the blob at key, overwriting any existing object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the blob at key. The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI renders the full location of key, e.g. gs://bucket/key.
	URI(key string) string

	// Key inverts URI: it maps a location back to the object key within this
	// store. A location already given as a bare key passes through unchanged;
	// a URI addressing a different bucket or root is an error.
	Key(location string) (string, error)
}

// bucketKey strips a scheme://bucket/ prefix from a location, shared by the
// bucket-addressed backends.
func bucketKey(location, scheme, bucket string) (string, error) {
	if !strings.HasPrefix(location, scheme) {
		return strings.TrimPrefix(strings.TrimPrefix(location, bucket+"/"), "/"), nil
	}
	rest := strings.TrimPrefix(location, scheme)
	key := strings.TrimPrefix(rest, bucket+"/")
	if key == rest {
		return "", errors.Errorf("location %q is not in bucket %q", location, bucket)
	}
	return key, nil
}
