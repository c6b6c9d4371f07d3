package nargo

import (
	"context"
	"strings"
	"sync"

	"github.com/stackb/noir-stage/pkg/collections"
	"github.com/stackb/noir-stage/pkg/vfs"
)

// MemoCompiler implements Compiler, skipping the compile when the sources
// under a directory are unchanged since its last successful compile.
// Files under target/ are not part of the digest.
type MemoCompiler struct {
	next Compiler

	mu    sync.Mutex
	known map[string]memoEntry
}

type memoEntry struct {
	digest  string
	program *Program
}

func NewMemoCompiler(next Compiler) *MemoCompiler {
	return &MemoCompiler{
		next:  next,
		known: make(map[string]memoEntry),
	}
}

// Compile implements the Compiler interface.
func (c *MemoCompiler) Compile(ctx context.Context, dir string) (*Program, error) {
	digest, err := SourceDigest(ctx, dir)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entry, ok := c.known[dir]
	c.mu.Unlock()
	if ok && entry.digest == digest {
		return entry.program, nil
	}

	program, err := c.next.Compile(ctx, dir)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.known[dir] = memoEntry{digest: digest, program: program}
	c.mu.Unlock()

	return program, nil
}

// SourceDigest hashes every file under dir except compiler output.
func SourceDigest(ctx context.Context, dir string) (string, error) {
	store, err := vfs.NewDiskStore(dir)
	if err != nil {
		return "", err
	}
	files := make(map[string][]byte)
	if err := store.Walk(ctx, func(name string, data []byte) error {
		if !strings.HasPrefix(name, "target/") {
			files[name] = data
		}
		return nil
	}); err != nil {
		return "", err
	}
	return collections.TreeSha256(files), nil
}
