package vfs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheConfig sizes a CachedStore.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultCacheConfig returns the defaults used when a field is unset.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 1024,
		TTL:        5 * time.Minute,
	}
}

// CacheStats is a snapshot of CachedStore counters.
type CacheStats struct {
	Hits         uint64
	Misses       uint64
	OriginReads  uint64
	OriginWrites uint64
}

// CachedStore is a read-through cache in front of a PrimaryStore.  Both file
// content and existence answers are cached; writes go to the origin first and
// then refresh the cache.
type CachedStore struct {
	origin PrimaryStore

	content *expirable.LRU[string, []byte]
	exists  *expirable.LRU[string, bool]

	hits         atomic.Uint64
	misses       atomic.Uint64
	originReads  atomic.Uint64
	originWrites atomic.Uint64
}

// NewCachedStore wraps origin.
func NewCachedStore(origin PrimaryStore, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	return &CachedStore{
		origin:  origin,
		content: expirable.NewLRU[string, []byte](cfg.MaxEntries, nil, cfg.TTL),
		exists:  expirable.NewLRU[string, bool](cfg.MaxEntries, nil, cfg.TTL),
	}
}

// Exists implements PrimaryStore.
func (s *CachedStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := cleanName(name)
	if err != nil {
		return false, err
	}
	if ok, found := s.exists.Get(key); found {
		s.hits.Add(1)
		return ok, nil
	}
	if _, found := s.content.Get(key); found {
		s.hits.Add(1)
		return true, nil
	}
	s.misses.Add(1)
	s.originReads.Add(1)
	ok, err := s.origin.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	s.exists.Add(key, ok)
	return ok, nil
}

// ReadFile implements PrimaryStore.
func (s *CachedStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if raw, found := s.content.Get(key); found {
		s.hits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.misses.Add(1)
	s.originReads.Add(1)
	raw, err := s.origin.ReadFile(ctx, key)
	if err != nil {
		return nil, err
	}
	s.content.Add(key, append([]byte(nil), raw...))
	s.exists.Add(key, true)
	return raw, nil
}

// WriteFile implements PrimaryStore.
func (s *CachedStore) WriteFile(ctx context.Context, name string, data []byte) error {
	key, err := cleanName(name)
	if err != nil {
		return err
	}
	s.originWrites.Add(1)
	if err := s.origin.WriteFile(ctx, key, data); err != nil {
		s.content.Remove(key)
		s.exists.Remove(key)
		return err
	}
	s.content.Add(key, append([]byte(nil), data...))
	s.exists.Add(key, true)
	return nil
}

// Purge drops every cached entry.
func (s *CachedStore) Purge() {
	s.content.Purge()
	s.exists.Purge()
}

// Stats returns the current counters.
func (s *CachedStore) Stats() CacheStats {
	return CacheStats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		OriginReads:  s.originReads.Load(),
		OriginWrites: s.originWrites.Load(),
	}
}
