// Package project drives a noir project through its lifecycle: manifest
// bootstrap, dependency staging of a root file and compilation of the staged
// tree.
package project

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pcj/mobyprogress"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/stackb/noir-stage/pkg/depresolve"
	"github.com/stackb/noir-stage/pkg/nargo"
	"github.com/stackb/noir-stage/pkg/status"
	"github.com/stackb/noir-stage/pkg/vfs"
)

// Option is a function that configures a Project.
type Option func(*Project) *Project

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Project) *Project {
		p.logger = logger
		return p
	}
}

// WithCompiler sets the compiler used by Compile.
func WithCompiler(compiler nargo.Compiler) Option {
	return func(p *Project) *Project {
		p.compiler = compiler
		return p
	}
}

// WithStatus sets the output that receives user-facing status updates.
func WithStatus(output mobyprogress.Output) Option {
	return func(p *Project) *Project {
		p.output = output
		return p
	}
}

// WithListener registers a lifecycle listener.
func WithListener(l Listener) Option {
	return func(p *Project) *Project {
		p.listeners = append(p.listeners, l)
		return p
	}
}

// WithManifest overrides DefaultManifest.
func WithManifest(content string) Option {
	return func(p *Project) *Project {
		p.manifest = content
		return p
	}
}

// WithResolverOptions configures the dependency resolver.
func WithResolverOptions(options ...depresolve.ResolverOption) Option {
	return func(p *Project) *Project {
		p.resolverOptions = append(p.resolverOptions, options...)
		return p
	}
}

// Project pairs a primary store with the staging store assembled from it.
type Project struct {
	primary vfs.PrimaryStore
	staging vfs.StagingStore

	resolver        *depresolve.Resolver
	resolverOptions []depresolve.ResolverOption
	compiler        nargo.Compiler
	output          mobyprogress.Output
	logger          zerolog.Logger
	manifest        string

	mu        sync.Mutex
	listeners []Listener
	// workDir receives exported staging files for stores without a local
	// directory.  It is reused across compiles.
	workDir string
}

// New constructs a Project.  Without WithCompiler, Compile fails.
func New(primary vfs.PrimaryStore, staging vfs.StagingStore, options ...Option) *Project {
	p := &Project{
		primary:  primary,
		staging:  staging,
		output:   status.Discard,
		logger:   zerolog.Nop(),
		manifest: DefaultManifest,
	}
	for _, opt := range options {
		p = opt(p)
	}
	resolverOptions := append([]depresolve.ResolverOption{depresolve.WithLogger(p.logger)}, p.resolverOptions...)
	p.resolver = depresolve.New(primary, staging, resolverOptions...)
	return p
}

// Activate announces the project and bootstraps its manifest.
func (p *Project) Activate(ctx context.Context) error {
	p.emit(EventActivated, nil)
	return p.Setup(ctx)
}

// Setup makes sure both stores carry a manifest.  A project without one
// gets the default manifest in the primary and the staging store; otherwise
// the existing manifest is copied to staging.
func (p *Project) Setup(ctx context.Context) error {
	exists, err := p.primary.Exists(ctx, ManifestFile)
	if err != nil {
		return fmt.Errorf("checking %s: %w", ManifestFile, err)
	}

	if !exists {
		data := []byte(p.manifest)
		if err := p.primary.WriteFile(ctx, ManifestFile, data); err != nil {
			return fmt.Errorf("writing %s: %w", ManifestFile, err)
		}
		if err := p.staging.WriteFile(ctx, ManifestFile, data); err != nil {
			return fmt.Errorf("staging %s: %w", ManifestFile, err)
		}
		p.logger.Info().Str("file", ManifestFile).Msg("wrote default manifest")
		status.WriteSetupProgress(p.output, "created "+ManifestFile)
		return nil
	}

	data, err := p.primary.ReadFile(ctx, ManifestFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", ManifestFile, err)
	}
	if err := p.staging.WriteFile(ctx, ManifestFile, data); err != nil {
		return fmt.Errorf("staging %s: %w", ManifestFile, err)
	}
	p.logger.Debug().Str("file", ManifestFile).Msg("staged manifest")
	status.WriteSetupProgress(p.output, "staged "+ManifestFile)
	return nil
}

// Parse stages the dependencies of path and then path itself.  When content
// is empty the file is read from the primary store.
func (p *Project) Parse(ctx context.Context, path, content string) (*depresolve.Traversal, error) {
	if content == "" {
		data, err := p.primary.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		content = string(data)
	}

	t, err := p.resolver.Resolve(ctx, path, content)
	if err != nil {
		return t, fmt.Errorf("resolving %s: %w", path, err)
	}
	for _, c := range t.Cycles() {
		p.logger.Debug().Str("file", c.File).Str("parent", c.Parent).Msg("cycle skipped")
	}

	if err := p.staging.WriteFile(ctx, path, []byte(content)); err != nil {
		return t, fmt.Errorf("staging %s: %w", path, err)
	}
	return t, nil
}

// Compile runs the compiler over the staging area.  Compile errors are
// reported to listeners and status output and also returned.
func (p *Project) Compile(ctx context.Context, path string) (*nargo.Program, error) {
	p.emit(EventCompilingStart, nil)
	status.WriteCompileStatus(p.output, status.Loading, "Compiling Noir Circuit...")
	p.logger.Info().Msg("Compiling " + path)

	program, err := p.compile(ctx)
	if err != nil {
		status.WriteCompileStatus(p.output, status.Error, err.Error())
		p.emit(EventCompilingErrored, err)
		return nil, err
	}

	p.emit(EventCompilingDone, nil)
	status.WriteCompileStatus(p.output, status.Succeed, "Noir circuit compiled successfully")
	return program, nil
}

func (p *Project) compile(ctx context.Context) (*nargo.Program, error) {
	if p.compiler == nil {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "no compiler configured")
	}
	if rooted, ok := p.staging.(vfs.Rooted); ok {
		return p.compiler.Compile(ctx, rooted.Dir())
	}

	walker, ok := p.staging.(vfs.Walker)
	if !ok {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "staging store %T cannot be exported for compilation", p.staging)
	}
	dir, err := p.exportDir()
	if err != nil {
		return nil, err
	}
	disk, err := vfs.NewDiskStore(dir)
	if err != nil {
		return nil, err
	}
	n, err := vfs.Export(ctx, walker, disk)
	if err != nil {
		return nil, err
	}
	status.WriteStageProgress(p.output, n, n, true)
	p.logger.Debug().Str("dir", dir).Int("files", n).Msg("exported staging area")

	return p.compiler.Compile(ctx, dir)
}

func (p *Project) exportDir() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workDir == "" {
		dir, err := os.MkdirTemp("", "noirstage-")
		if err != nil {
			return "", fmt.Errorf("creating export directory: %w", err)
		}
		p.workDir = dir
	}
	return p.workDir, nil
}

// Close removes the export directory created by Compile, if any.
func (p *Project) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workDir == "" {
		return nil
	}
	err := os.RemoveAll(p.workDir)
	p.workDir = ""
	return err
}
