package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FSBackend stores objects as files on an afero filesystem. Each bucket is a
// directory under root.
type FSBackend struct {
	fs   afero.Fs
	root string
}

// NewFSBackend returns a backend rooted at root on fsys.
func NewFSBackend(fsys afero.Fs, root string) *FSBackend {
	return &FSBackend{fs: fsys, root: root}
}

// NewOSBackend returns a backend on the local disk.
func NewOSBackend(root string) *FSBackend {
	return NewFSBackend(afero.NewOsFs(), root)
}

// NewMemBackend returns a backend held in memory.
func NewMemBackend() *FSBackend {
	return NewFSBackend(afero.NewMemMapFs(), "/")
}

// objectPath maps a key to its file. Keys a directory tree cannot hold
// one-to-one (empty, absolute, trailing slash, doubled slashes or dot
// segments) are rejected rather than rewritten to another file.
func (b *FSBackend) objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bad bucket name %q", ErrInvalidPath, bucket)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	if path.Clean(key) != key || strings.HasPrefix(key, "/") || key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("%w: key %q has no file form", ErrInvalidPath, key)
	}
	return filepath.Join(b.root, bucket, filepath.FromSlash(key)), nil
}

// Put writes data to the object's file, creating parent directories.
func (b *FSBackend) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := b.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := afero.WriteFile(b.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Get reads the object's file.
func (b *FSBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// List walks the bucket directory. A missing bucket lists as empty.
func (b *FSBackend) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(b.root, bucket)
	if ok, err := afero.DirExists(b.fs, dir); err != nil || !ok {
		return nil, err
	}

	var keys []string
	err := afero.Walk(b.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
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
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Remove deletes each key's file.
func (b *FSBackend) Remove(ctx context.Context, bucket string, keys []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	failed := make(map[string]error)
	for _, key := range keys {
		p, err := b.objectPath(bucket, key)
		if err != nil {
			failed[key] = err
			continue
		}
		if err := b.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed[key] = err
		}
	}
	return failed, nil
}
