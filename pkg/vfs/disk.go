package vfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DiskStore is a store rooted at a local directory.
type DiskStore struct {
	root string
	perm fs.FileMode
}

// NewDiskStore returns a store rooted at dir.  The directory is created if
// it does not exist.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("disk store directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating %s: %w", abs, err)
	}
	return &DiskStore{root: abs, perm: 0644}, nil
}

// Dir implements Rooted.
func (s *DiskStore) Dir() string {
	return s.root
}

func (s *DiskStore) abs(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s: path escapes store root", name)
	}
	return filepath.Join(s.root, rel), nil
}

// Exists implements PrimaryStore.
func (s *DiskStore) Exists(_ context.Context, name string) (bool, error) {
	filename, err := s.abs(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile implements PrimaryStore.
func (s *DiskStore) ReadFile(_ context.Context, name string) ([]byte, error) {
	filename, err := s.abs(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filename)
}

// WriteFile implements PrimaryStore and StagingStore.  Parent directories are
// created as needed.
func (s *DiskStore) WriteFile(_ context.Context, name string, data []byte) error {
	filename, err := s.abs(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(filename, data, s.perm)
}

// Glob returns the sorted names matching a doublestar pattern, for example
// "**/*.nr".
func (s *DiskStore) Glob(pattern string) ([]string, error) {
	names, err := doublestar.Glob(os.DirFS(s.root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(names)
	return names, nil
}

// Walk implements Walker.
func (s *DiskStore) Walk(ctx context.Context, fn WalkFunc) error {
	names, err := s.Glob("**")
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.ReadFile(ctx, name)
		if err != nil {
			return err
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}
