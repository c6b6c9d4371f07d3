package config

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/stackb/noir-stage/pkg/collections"
	"github.com/stackb/noir-stage/pkg/logger"
	"github.com/stackb/noir-stage/pkg/procutil"
	"github.com/stackb/noir-stage/pkg/testutil"
	"github.com/stackb/noir-stage/pkg/vfs"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("noirstage", flag.ContinueOnError)
	c := New()
	c.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return c, c.CheckFlags(fs)
}

func TestDefaults(t *testing.T) {
	c, err := parse(t, "-env_file", "")
	require.NoError(t, err)

	if c.Primary != StoreDisk || c.Staging != StoreMemory {
		t.Errorf("unexpected stores %s/%s", c.Primary, c.Staging)
	}
	if !c.StrictCycles || c.ScanDependencyContent || c.ReadOnlyAbsolute {
		t.Errorf("unexpected resolution defaults %+v", c)
	}
	if c.CanonicalExtension() != ".nr" || c.RecognizedExtensions() != nil {
		t.Errorf("unexpected extensions %v", c.Extensions)
	}
	if c.LogFormat != logger.FormatConsole {
		t.Errorf("unexpected log format %q", c.LogFormat)
	}
}

func TestPrecedence(t *testing.T) {
	dir, _ := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{
		{
			Path: "noirstage.yaml",
			Content: `
primary: postgres
pg_dsn: postgres://file
project: from-file
cache_ttl: 30s
strict_cycles: false
ext: [".nr", ".noir"]
log_format: json
`,
		},
		{
			Path:    "test.env",
			Content: "NOIRSTAGE_S3_BUCKET=from-dotenv\nNOIRSTAGE_CACHE_SIZE=7\n",
		},
	})
	t.Setenv(string(procutil.EnvPostgresDSN), "postgres://env")
	// godotenv does not override variables that are already set
	t.Setenv(string(procutil.EnvCacheSize), "9")
	// registers a restore of the unset state for the variable dotenv sets
	t.Setenv(string(procutil.EnvS3Bucket), "")
	os.Unsetenv(string(procutil.EnvS3Bucket))

	c, err := parse(t,
		"-config", filepath.Join(dir, "noirstage.yaml"),
		"-env_file", filepath.Join(dir, "test.env"),
		"-project", "from-flag",
	)
	require.NoError(t, err)

	got := map[string]any{
		"primary":    c.Primary,
		"dsn":        c.PostgresDSN,
		"project":    c.Project,
		"bucket":     c.S3.Bucket,
		"cache_size": c.CacheSize,
		"cache_ttl":  c.CacheTTL,
		"strict":     c.StrictCycles,
		"ext":        c.Extensions,
		"log_format": c.LogFormat,
	}
	want := map[string]any{
		"primary":    StorePostgres,
		"dsn":        "postgres://env",
		"project":    "from-flag",
		"bucket":     "from-dotenv",
		"cache_size": 9,
		"cache_ttl":  30 * time.Second,
		"strict":     false,
		"ext":        collections.StringSlice{".nr", ".noir"},
		"log_format": logger.FormatJSON,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		args    []string
		wantErr string
	}{
		"unknown primary": {
			args:    []string{"-primary", "ftp"},
			wantErr: `unknown primary store "ftp"`,
		},
		"postgres needs dsn": {
			args:    []string{"-primary", "postgres"},
			wantErr: "-pg_dsn and -project are required for -primary=postgres",
		},
		"host needs url": {
			args:    []string{"-primary", "host"},
			wantErr: "-host_url is required for -primary=host",
		},
		"disk staging needs dir": {
			args:    []string{"-staging", "disk"},
			wantErr: "-staging_dir is required for -staging=disk",
		},
		"bad log level": {
			args:    []string{"-log_level", "loud"},
			wantErr: `invalid log level "loud"`,
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parse(t, append([]string{"-env_file", ""}, tc.args...)...)
			if err == nil || !strings.HasPrefix(err.Error(), tc.wantErr) {
				t.Errorf("want %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOpenStoresDisk(t *testing.T) {
	primaryDir, _ := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{
		{Path: "src/main.nr", Content: "fn main() {}\n"},
	})
	stagingDir, _ := testutil.MustPrepareTestFiles(t, nil)

	c, err := parse(t,
		"-env_file", "",
		"-primary_dir", primaryDir,
		"-staging", "disk",
		"-staging_dir", stagingDir,
	)
	require.NoError(t, err)

	stores, err := c.OpenStores(context.Background(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	if stores.Cache != nil {
		t.Error("disk primary should not be cached")
	}
	ok, err := stores.Primary.Exists(context.Background(), "src/main.nr")
	require.NoError(t, err)
	if !ok {
		t.Error("primary should see src/main.nr")
	}
	rooted, ok := stores.Staging.(vfs.Rooted)
	if !ok || rooted.Dir() != stagingDir {
		t.Errorf("staging should be rooted at %s", stagingDir)
	}
}

func TestResolverOptions(t *testing.T) {
	c, err := parse(t, "-env_file", "", "-ext", ".noir,.nr", "-strict_cycles=false")
	require.NoError(t, err)
	if got := len(c.ResolverOptions(testutil.NewTestLogger(t))); got != 5 {
		t.Errorf("want 5 options, got %d", got)
	}
	if c.CanonicalExtension() != ".noir" {
		t.Errorf("canonical: got %s", c.CanonicalExtension())
	}
	if diff := cmp.Diff([]string{".nr"}, c.RecognizedExtensions()); diff != "" {
		t.Errorf("recognized (-want +got):\n%s", diff)
	}
}
