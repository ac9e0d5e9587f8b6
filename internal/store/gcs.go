package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
)

// GCS is a Store backed by a Google Cloud Storage bucket. This is the default
// exchange backend.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a GCS-backed store on the named bucket using ambient
// credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Put implements Store.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "uploading %s", g.URI(key))
	}
	return errors.Wrapf(w.Close(), "finalizing upload of %s", g.URI(key))
}

// Get implements Store.
func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Wrapf(ErrKeyNotFound, "%s", g.URI(key))
		}
		return nil, errors.Wrapf(err, "downloading %s", g.URI(key))
	}
	return r, nil
}

// Exists implements Store.
func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %s", g.URI(key))
	}
	return true, nil
}

// List implements Store.
func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	items := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		item, err := items.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "listing gs://%s/%s", g.bucket, prefix)
		}
		keys = append(keys, item.Name)
	}
	return keys, nil
}

// URI implements Store.
func (g *GCS) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, strings.TrimPrefix(key, "/"))
}

// Key implements Store.
func (g *GCS) Key(location string) (string, error) {
	return bucketKey(location, "gs://", g.bucket)
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

var _ Store = (*GCS)(nil)
