// Package vfs defines the file store contracts used by the resolver and the
// backends that implement them.
//
// A PrimaryStore is the canonical project tree visible to the editor.  A
// StagingStore is the isolated tree assembled for the compiler.  Names are
// project-relative, slash-separated paths.
package vfs

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
)

// PrimaryStore is the project file tree.  Exists must report a missing file
// as (false, nil) rather than as an error, since callers branch on it before
// reading.
type PrimaryStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
}

// StagingStore is the compiler-visible tree.  Every PrimaryStore is also a
// StagingStore.
type StagingStore interface {
	WriteFile(ctx context.Context, name string, data []byte) error
}

// WalkFunc is called for each file visited by a Walker.
type WalkFunc func(name string, data []byte) error

// Walker is implemented by stores that can enumerate their content.
type Walker interface {
	Walk(ctx context.Context, fn WalkFunc) error
}

// Rooted is implemented by stores backed by a local directory.
type Rooted interface {
	Dir() string
}

// notExist returns an error that matches fs.ErrNotExist.
func notExist(name string) error {
	return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}

// cleanName normalizes a store key: surrounding space and leading
// separators are removed.
func cleanName(name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	return name, nil
}
