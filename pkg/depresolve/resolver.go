// Package depresolve discovers the local modules a noir source file depends
// on and stages them for the compiler.
//
// Resolution is a lazy, depth-first walk over an implicit graph: nodes are
// files, edges are `mod` directives.  Each dependency is looked up in the
// primary store, first as a project-absolute path and then relative to the
// importing file, and copied into the staging store.  Lookups are sequential
// so siblings are processed in text order.
package depresolve

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stackb/noir-stage/pkg/modpath"
	"github.com/stackb/noir-stage/pkg/modscan"
	"github.com/stackb/noir-stage/pkg/vfs"
)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver) *Resolver

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) *Resolver {
		r.logger = logger
		return r
	}
}

// WithExtension sets the canonical source extension and any additional
// extensions that are accepted as-is.
func WithExtension(ext string, recognized ...string) ResolverOption {
	return func(r *Resolver) *Resolver {
		r.names = modpath.New(ext, recognized...)
		return r
	}
}

// WithStrictCycles toggles the ancestor-chain cycle check that runs in
// addition to the (file, parent) check.  It is on by default.  A dependency
// that is already on the active import chain is neither staged nor recursed
// into.  Without it, cycles of three or more files recurse without bound.
func WithStrictCycles(strict bool) ResolverOption {
	return func(r *Resolver) *Resolver {
		r.strictCycles = strict
		return r
	}
}

// WithScanDependencyContent makes the staging decision look at the
// directives of the dependency itself.  By default the importer's content is
// scanned, which means every non-empty dependency is staged.
func WithScanDependencyContent(scan bool) ResolverOption {
	return func(r *Resolver) *Resolver {
		r.scanDependencyContent = scan
		return r
	}
}

// WithReadOnlyAbsolute makes dependencies found at their project-absolute
// path read-only: they are fetched but neither recorded, staged nor recursed
// into at this level.
func WithReadOnlyAbsolute(readOnly bool) ResolverOption {
	return func(r *Resolver) *Resolver {
		r.readOnlyAbsolute = readOnly
		return r
	}
}

// Resolver stages the transitive module dependencies of a file.  A Resolver
// holds no per-resolution state and may be used by concurrent callers; each
// Resolve call gets its own Traversal.
type Resolver struct {
	primary vfs.PrimaryStore
	staging vfs.StagingStore
	names   *modpath.Normalizer
	logger  zerolog.Logger

	strictCycles          bool
	scanDependencyContent bool
	readOnlyAbsolute      bool
}

// New constructs a Resolver that reads from primary and writes to staging.
func New(primary vfs.PrimaryStore, staging vfs.StagingStore, options ...ResolverOption) *Resolver {
	r := &Resolver{
		primary: primary,
		staging: staging,
		names:   modpath.New(modpath.DefaultExtension),
		logger:  zerolog.Nop(),

		strictCycles: true,
	}
	for _, opt := range options {
		r = opt(r)
	}
	return r
}

// Resolve stages every module reachable from filePath, whose text is
// fileContent.  The root file itself is not staged.  A dependency that cannot
// be found aborts the pass with a *DependencyNotFoundError; files staged
// before the failure stay in place.
func (r *Resolver) Resolve(ctx context.Context, filePath, fileContent string) (*Traversal, error) {
	t := NewTraversal()
	if err := r.ResolveFrom(ctx, t, filePath, fileContent, ""); err != nil {
		return t, err
	}
	return t, nil
}

// ResolveFrom continues a resolution with existing traversal state.
// parentPath is the file that imported filePath, or "" at the top level.
func (r *Resolver) ResolveFrom(ctx context.Context, t *Traversal, filePath, fileContent, parentPath string) error {
	t.ancestors.Push(filePath)
	defer t.ancestors.Pop()

	for module := range modscan.Modules(fileContent) {
		if err := ctx.Err(); err != nil {
			return err
		}
		dep := r.names.WithExtension(module)

		if t.HasVisited(filePath, parentPath) {
			c := CircularDependency{File: filePath, Parent: parentPath, Module: module}
			t.recordCycle(c)
			r.logger.Warn().Str("file", filePath).Str("parent", parentPath).Msg(c.String())
			return nil
		}

		resolved, absolute, err := r.locate(ctx, filePath, module, dep)
		if err != nil {
			return err
		}

		if absolute && r.readOnlyAbsolute {
			if _, err := r.read(ctx, resolved); err != nil {
				return err
			}
			r.logger.Debug().Str("file", filePath).Str("dep", resolved).Msg("read absolute dependency")
			continue
		}

		if r.strictCycles {
			if chain, ok := t.onStack(resolved); ok {
				c := CircularDependency{File: resolved, Parent: filePath, Module: module, Chain: chain}
				t.recordCycle(c)
				r.logger.Warn().Strs("chain", chain).Msg(c.String())
				continue
			}
		}

		content, err := r.read(ctx, resolved)
		if err != nil {
			return err
		}
		t.Visit(filePath, resolved)
		r.logger.Debug().Str("file", filePath).Str("dep", resolved).Msg("resolved dependency")

		scanned := fileContent
		if r.scanDependencyContent {
			scanned = content
		}
		if !modscan.HasDirectives(scanned) || len(content) == 0 {
			continue
		}

		dest := resolved
		if parentPath != "" {
			dest = r.names.TrimExtension(filePath) + "/" + dep
		}
		if err := r.stage(ctx, t, dest, content); err != nil {
			return err
		}
		if err := r.ResolveFrom(ctx, t, resolved, content, filePath); err != nil {
			return err
		}
	}

	return nil
}

// locate finds the file for a dependency.  The traversal-stripped name is
// tried as a project-absolute path first, then the name is joined to the
// importer's directory.
func (r *Resolver) locate(ctx context.Context, importer, module, dep string) (resolved string, absolute bool, err error) {
	candidate := modpath.StripTraversal(dep)
	exists, err := r.primary.Exists(ctx, candidate)
	if err != nil {
		return "", false, fmt.Errorf("checking %s: %w", candidate, err)
	}
	if exists {
		return candidate, true, nil
	}

	relative := modpath.Relative(importer, dep)
	exists, err = r.primary.Exists(ctx, relative)
	if err != nil {
		return "", false, fmt.Errorf("checking %s: %w", relative, err)
	}
	if exists {
		return relative, false, nil
	}

	return "", false, &DependencyNotFoundError{
		Module:   module,
		Path:     dep,
		Importer: importer,
		Tried:    []string{candidate, relative},
	}
}

func (r *Resolver) read(ctx context.Context, name string) (string, error) {
	data, err := r.primary.ReadFile(ctx, name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

// stage writes content to the staging store unless this traversal already
// staged the same path.  The first write of a path wins.
func (r *Resolver) stage(ctx context.Context, t *Traversal, dest, content string) error {
	if prev, ok := t.staged[dest]; ok {
		if prev != content {
			r.logger.Warn().Str("path", dest).Msg("skipping conflicting re-stage")
		}
		return nil
	}
	if err := r.staging.WriteFile(ctx, dest, []byte(content)); err != nil {
		return fmt.Errorf("staging %s: %w", dest, err)
	}
	t.staged[dest] = content
	r.logger.Debug().Str("path", dest).Int("bytes", len(content)).Msg("staged")
	return nil
}
