package config

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"github.com/stackb/noir-stage/pkg/depresolve"
	"github.com/stackb/noir-stage/pkg/vfs"
)

// Stores are the opened primary and staging stores of a run.
type Stores struct {
	Primary vfs.PrimaryStore
	Staging vfs.StagingStore
	// Cache is the read cache in front of Primary, or nil.
	Cache *vfs.CachedStore

	closers []io.Closer
}

// Close releases connections held by the stores.
func (s *Stores) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func (c *Config) s3Config(prefix string) vfs.S3Config {
	return vfs.S3Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		Bucket:    c.S3.Bucket,
		Prefix:    prefix,
		UseSSL:    c.S3.UseSSL,
	}
}

// OpenStores opens the configured stores.  An S3 staging store lives under
// the "staging" key prefix so it never overlaps an S3 primary store.
func (c *Config) OpenStores(ctx context.Context, logger zerolog.Logger) (*Stores, error) {
	stores := &Stores{}

	primary, err := c.openPrimary(ctx, stores)
	if err != nil {
		stores.Close()
		return nil, err
	}
	if c.CacheSize > 0 && c.Primary != StoreMemory && c.Primary != StoreDisk {
		stores.Cache = vfs.NewCachedStore(primary, vfs.CacheConfig{
			MaxEntries: c.CacheSize,
			TTL:        c.CacheTTL,
		})
		primary = stores.Cache
	}
	stores.Primary = primary

	switch c.Staging {
	case StoreMemory:
		stores.Staging = vfs.NewMemoryStore()
	case StoreDisk:
		disk, err := vfs.NewDiskStore(c.StagingDir)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Staging = disk
	case StoreS3:
		s3, err := vfs.NewS3Store(c.s3Config(path.Join(c.S3.Prefix, "staging")))
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Staging = s3
	default:
		stores.Close()
		return nil, fmt.Errorf("unknown staging store %q", c.Staging)
	}

	logger.Debug().
		Str("primary", c.Primary).
		Str("staging", c.Staging).
		Bool("cached", stores.Cache != nil).
		Msg("stores opened")

	return stores, nil
}

func (c *Config) openPrimary(ctx context.Context, stores *Stores) (vfs.PrimaryStore, error) {
	switch c.Primary {
	case StoreMemory:
		return vfs.NewMemoryStore(), nil
	case StoreDisk:
		return vfs.NewDiskStore(c.PrimaryDir)
	case StoreS3:
		return vfs.NewS3Store(c.s3Config(c.S3.Prefix))
	case StorePostgres:
		pg, err := vfs.OpenPostgresStore(ctx, c.PostgresDSN, c.Project)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pg)
		return pg, nil
	case StoreHost:
		host, err := vfs.DialHostStore(ctx, c.HostURL)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, host)
		return host, nil
	}
	return nil, fmt.Errorf("unknown primary store %q", c.Primary)
}

// ResolverOptions translates the resolution settings.
func (c *Config) ResolverOptions(logger zerolog.Logger) []depresolve.ResolverOption {
	return []depresolve.ResolverOption{
		depresolve.WithLogger(logger),
		depresolve.WithExtension(c.CanonicalExtension(), c.RecognizedExtensions()...),
		depresolve.WithStrictCycles(c.StrictCycles),
		depresolve.WithScanDependencyContent(c.ScanDependencyContent),
		depresolve.WithReadOnlyAbsolute(c.ReadOnlyAbsolute),
	}
}
