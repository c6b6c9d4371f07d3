// Package nargo is a compiler front end for staged noir projects.  The
// backend is the nargo binary, run as a subprocess per compile.
package nargo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stackb/noir-stage/pkg/procutil"
)

// DefaultBinary is looked up on $PATH when no binary is configured.
const DefaultBinary = "nargo"

// ArtifactPattern locates the compiled circuit under a program directory.
const ArtifactPattern = "target/*.json"

// Program is the result of a successful compile.
type Program struct {
	// Dir is the program directory that was compiled.
	Dir string
	// Artifact is the artifact path relative to Dir.
	Artifact string
	// Data is the artifact content.
	Data []byte
	// Output is the combined stdout and stderr of the compiler.
	Output string
	// Elapsed is the wall time of the compile.
	Elapsed time.Duration
}

// Compiler compiles the noir program rooted at dir, which must contain a
// Nargo.toml manifest.
type Compiler interface {
	Compile(ctx context.Context, dir string) (*Program, error)
}

// CompilerOption is a function that configures a Nargo.
type CompilerOption func(*Nargo) *Nargo

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) CompilerOption {
	return func(c *Nargo) *Nargo {
		c.logger = logger
		return c
	}
}

// WithArgs appends extra arguments after `compile --program-dir DIR`.
func WithArgs(args ...string) CompilerOption {
	return func(c *Nargo) *Nargo {
		c.args = append(c.args, args...)
		return c
	}
}

// WithEnv sets additional KEY=VALUE environment entries for the subprocess.
func WithEnv(env ...string) CompilerOption {
	return func(c *Nargo) *Nargo {
		c.env = append(c.env, env...)
		return c
	}
}

// Nargo implements Compiler by running the nargo binary.
type Nargo struct {
	binary string
	args   []string
	env    []string
	logger zerolog.Logger
}

func NewNargo(binary string, options ...CompilerOption) *Nargo {
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Nargo{
		binary: binary,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

// Binary returns the configured compiler binary.
func (c *Nargo) Binary() string {
	return c.binary
}

// Compile implements Compiler.
func (c *Nargo) Compile(ctx context.Context, dir string) (*Program, error) {
	t1 := time.Now()

	if _, err := os.Stat(filepath.Join(dir, "Nargo.toml")); err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "program directory %s: %v", dir, err)
	}

	args := append([]string{"compile", "--program-dir", dir}, c.args...)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	c.logger.Debug().Str("dir", dir).Strs("args", args).Msg("running compiler")

	err := cmd.Run()
	output := out.String()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		exitCode := procutil.CmdExitCode(cmd, err)
		if exitCode < 0 {
			return nil, status.Errorf(codes.FailedPrecondition, "running %s: %v", c.binary, err)
		}
		return nil, status.Errorf(codes.Internal, "%s compile exited with code %d:\n%s", c.binary, exitCode, output)
	}

	artifact, err := FindArtifact(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(artifact)))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reading artifact %s: %v", artifact, err)
	}

	elapsed := time.Since(t1).Round(time.Millisecond)
	c.logger.Debug().Str("artifact", artifact).Dur("elapsed", elapsed).Msg("compile finished")

	return &Program{
		Dir:      dir,
		Artifact: artifact,
		Data:     data,
		Output:   output,
		Elapsed:  elapsed,
	}, nil
}

// FindArtifact returns the first artifact under dir matching ArtifactPattern.
func FindArtifact(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), ArtifactPattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", ArtifactPattern, err)
	}
	if len(matches) == 0 {
		return "", status.Errorf(codes.NotFound, "no artifact matching %s in %s", ArtifactPattern, dir)
	}
	return matches[0], nil
}

// IsCompileError reports whether err came from the compiler rejecting the
// program, as opposed to the compiler not being runnable.
func IsCompileError(err error) bool {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return false
	}
	return se.GRPCStatus().Code() == codes.Internal
}
