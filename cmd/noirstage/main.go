// noirstage resolves the local module dependencies of noir root files,
// stages them next to the project manifest and optionally compiles the
// staged tree.
//
//	noirstage [flags] ROOT_FILE...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/stackb/noir-stage/pkg/config"
	"github.com/stackb/noir-stage/pkg/depresolve"
	"github.com/stackb/noir-stage/pkg/logger"
	"github.com/stackb/noir-stage/pkg/nargo"
	"github.com/stackb/noir-stage/pkg/project"
	"github.com/stackb/noir-stage/pkg/status"
)

func main() {
	log.SetPrefix("noirstage: ")
	log.SetFlags(0) // don't print timestamps

	if err := run(os.Args[1:], os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stderr io.Writer) error {
	cfg, roots, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logs, err := logger.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	stores, err := cfg.OpenStores(ctx, logs)
	if err != nil {
		return fmt.Errorf("opening stores: %w", err)
	}
	defer stores.Close()

	options := []project.Option{
		project.WithLogger(logs),
		project.WithStatus(status.NewOutput(stderr)),
		project.WithResolverOptions(cfg.ResolverOptions(logs)...),
		project.WithListener(func(ev project.Event, err error) {
			logs.Debug().Str("event", string(ev)).AnErr("error", err).Msg("project event")
		}),
	}
	if cfg.Compile {
		compiler := nargo.NewNargo(cfg.Nargo, nargo.WithLogger(logs))
		options = append(options, project.WithCompiler(nargo.NewMemoCompiler(compiler)))
	}
	p := project.New(stores.Primary, stores.Staging, options...)
	defer p.Close()

	if err := p.Activate(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	for _, root := range roots {
		trav, err := p.Parse(ctx, root, "")
		if err != nil {
			return err
		}
		logStaged(logs, root, trav)

		if !cfg.Compile {
			continue
		}
		program, err := p.Compile(ctx, root)
		if err != nil {
			return fmt.Errorf("compile %s: %w", root, err)
		}
		logs.Info().
			Str("root", root).
			Str("artifact", program.Artifact).
			Dur("elapsed", program.Elapsed).
			Msg("compiled")
	}

	if stores.Cache != nil {
		stats := stores.Cache.Stats()
		logs.Debug().
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Msg("primary cache")
	}

	return nil
}

func parseFlags(args []string, stderr io.Writer) (*config.Config, []string, error) {
	cfg := config.New()
	fs := flag.NewFlagSet("noirstage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: noirstage [OPTIONS] ROOT_FILE...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := cfg.CheckFlags(fs); err != nil {
		return nil, nil, err
	}

	roots := fs.Args()
	if len(roots) == 0 {
		fs.Usage()
		return nil, nil, fmt.Errorf("at least one ROOT_FILE is required")
	}
	return cfg, roots, nil
}

func logStaged(logs zerolog.Logger, root string, trav *depresolve.Traversal) {
	staged := trav.Staged()
	logs.Info().
		Str("root", root).
		Int("files", len(trav.Files())).
		Int("staged", len(staged)).
		Int("cycles", len(trav.Cycles())).
		Msg("resolved dependencies")

	if logs.GetLevel() <= zerolog.DebugLevel {
		logs.Debug().Msg(spew.Sdump(trav.VisitedMap()))
	}
}
