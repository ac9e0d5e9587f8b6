package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Local is a filesystem-rooted Store, used by the test suites and for
// air-gapped exchanges via a shared mount.
type Local struct {
	root string
}

// NewLocal opens a filesystem store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating store root %q", dir)
	}
	return &Local{root: dir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Put implements Store.
func (l *Local) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := l.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %q", path)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %q", path)
	}
	return errors.Wrapf(f.Close(), "closing %q", path)
}

// Get implements Store.
func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(l.path(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrKeyNotFound, "%s", l.URI(key))
		}
		return nil, errors.Wrapf(err, "opening %q", key)
	}
	return f, nil
}

// Exists implements Store.
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %q", key)
	}
	return true, nil
}

// List implements Store.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %q under %q", prefix, l.root)
	}
	return keys, nil
}

// URI implements Store.
func (l *Local) URI(key string) string {
	return fmt.Sprintf("file://%s", l.path(key))
}

// Key implements Store.
func (l *Local) Key(location string) (string, error) {
	path := strings.TrimPrefix(location, "file://")
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("location %q is outside store root %q", location, l.root)
	}
	return filepath.ToSlash(rel), nil
}

var _ Store = (*Local)(nil)
