package vfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dghubble/trie"
)

// MemoryStore is an in-memory store indexed by a path trie.  It serves
// either role and is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	files *trie.PathTrie
	size  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: trie.NewPathTrie()}
}

// NewMemoryStoreFromMap returns a MemoryStore seeded with the given
// name -> content entries.
func NewMemoryStoreFromMap(files map[string]string) *MemoryStore {
	s := NewMemoryStore()
	for name, content := range files {
		if name, err := cleanName(name); err == nil {
			s.put(name, []byte(content))
		}
	}
	return s
}

func (s *MemoryStore) put(name string, data []byte) {
	if s.files.Put(name, append([]byte(nil), data...)) {
		s.size++
	}
}

// Exists implements PrimaryStore.
func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("store is nil")
	}
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.Get(name) != nil, nil
}

// ReadFile implements PrimaryStore.
func (s *MemoryStore) ReadFile(_ context.Context, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.files.Get(name).([]byte)
	if !ok {
		return nil, notExist(name)
	}
	return append([]byte(nil), raw...), nil
}

// WriteFile implements PrimaryStore and StagingStore.
func (s *MemoryStore) WriteFile(_ context.Context, name string, data []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(name, data)
	return nil
}

// Len returns the number of files in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// List returns the sorted names under the given directory prefix.  An empty
// prefix lists everything.
func (s *MemoryStore) List(prefix string) []string {
	prefix = strings.Trim(prefix, "/")
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	s.files.Walk(func(key string, value interface{}) error {
		if prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/") {
			names = append(names, key)
		}
		return nil
	})
	sort.Strings(names)
	return names
}

// Files returns a name -> content snapshot of the store.
func (s *MemoryStore) Files() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make(map[string]string, s.size)
	s.files.Walk(func(key string, value interface{}) error {
		files[key] = string(value.([]byte))
		return nil
	})
	return files
}

// Walk implements Walker.  Files are visited in name order.
func (s *MemoryStore) Walk(ctx context.Context, fn WalkFunc) error {
	for _, name := range s.List("") {
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
