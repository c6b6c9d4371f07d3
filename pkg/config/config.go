// Package config assembles noirstage settings from flags, the environment,
// an optional .env file and an optional YAML file.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables (including those loaded from .env), then flags that were set
// explicitly on the command line.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stackb/noir-stage/pkg/collections"
	"github.com/stackb/noir-stage/pkg/logger"
	"github.com/stackb/noir-stage/pkg/modpath"
	"github.com/stackb/noir-stage/pkg/procutil"
	"github.com/stackb/noir-stage/pkg/vfs"
)

// Store kinds accepted by -primary and -staging.
const (
	StoreMemory   = "memory"
	StoreDisk     = "disk"
	StoreS3       = "s3"
	StorePostgres = "postgres"
	StoreHost     = "host"
)

// DefaultEnvFile is read when -env_file is not given.  A missing default
// file is not an error.
const DefaultEnvFile = ".env"

// Config holds the settings of a noirstage run.
type Config struct {
	// ConfigFile is the optional YAML file.
	ConfigFile string `yaml:"-"`
	// EnvFile is the dotenv file loaded into the process environment.
	EnvFile string `yaml:"-"`

	Primary    string `yaml:"primary"`
	PrimaryDir string `yaml:"primary_dir"`
	Staging    string `yaml:"staging"`
	StagingDir string `yaml:"staging_dir"`

	S3 S3Config `yaml:"s3"`

	PostgresDSN string `yaml:"pg_dsn"`
	Project     string `yaml:"project"`
	HostURL     string `yaml:"host_url"`

	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	StrictCycles          bool `yaml:"strict_cycles"`
	ScanDependencyContent bool `yaml:"scan_dependency_content"`
	ReadOnlyAbsolute      bool `yaml:"read_only_absolute"`
	// Extensions are the source extensions.  The first is canonical, the
	// rest are also accepted as written.
	Extensions collections.StringSlice `yaml:"ext"`

	Compile bool   `yaml:"compile"`
	Nargo   string `yaml:"nargo"`

	LogLevel  string        `yaml:"log_level"`
	LogFormat logger.Format `yaml:"log_format"`
	Timeout   time.Duration `yaml:"timeout"`
}

// S3Config holds the object store settings shared by both store roles.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// New returns a Config with built-in defaults.
func New() *Config {
	cache := vfs.DefaultCacheConfig()
	return &Config{
		EnvFile:      DefaultEnvFile,
		Primary:      StoreDisk,
		PrimaryDir:   ".",
		Staging:      StoreMemory,
		S3:           S3Config{Region: "us-east-1", UseSSL: true},
		CacheSize:    cache.MaxEntries,
		CacheTTL:     cache.TTL,
		StrictCycles: true,
		Nargo:        "nargo",
		LogLevel:     logger.DefaultLevel,
		LogFormat:    logger.FormatConsole,
	}
}

// RegisterFlags binds every setting to a flag on fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "optional YAML configuration file")
	fs.StringVar(&c.EnvFile, "env_file", c.EnvFile, "dotenv file loaded into the environment")
	fs.StringVar(&c.Primary, "primary", c.Primary, "primary store kind (disk|s3|postgres|host|memory)")
	fs.StringVar(&c.PrimaryDir, "primary_dir", c.PrimaryDir, "project directory for -primary=disk")
	fs.StringVar(&c.Staging, "staging", c.Staging, "staging store kind (memory|disk|s3)")
	fs.StringVar(&c.StagingDir, "staging_dir", c.StagingDir, "staging directory for -staging=disk")
	fs.StringVar(&c.S3.Endpoint, "s3_endpoint", c.S3.Endpoint, "S3 endpoint (host:port)")
	fs.StringVar(&c.S3.Region, "s3_region", c.S3.Region, "S3 region")
	fs.StringVar(&c.S3.AccessKey, "s3_access_key", c.S3.AccessKey, "S3 access key")
	fs.StringVar(&c.S3.SecretKey, "s3_secret_key", c.S3.SecretKey, "S3 secret key")
	fs.StringVar(&c.S3.Bucket, "s3_bucket", c.S3.Bucket, "S3 bucket")
	fs.StringVar(&c.S3.Prefix, "s3_prefix", c.S3.Prefix, "S3 key prefix")
	fs.BoolVar(&c.S3.UseSSL, "s3_use_ssl", c.S3.UseSSL, "use TLS for S3")
	fs.StringVar(&c.PostgresDSN, "pg_dsn", c.PostgresDSN, "postgres connection string for -primary=postgres")
	fs.StringVar(&c.Project, "project", c.Project, "project name for the postgres store")
	fs.StringVar(&c.HostURL, "host_url", c.HostURL, "websocket url of the editor host for -primary=host")
	fs.IntVar(&c.CacheSize, "cache_size", c.CacheSize, "primary read cache entries (0 disables the cache)")
	fs.DurationVar(&c.CacheTTL, "cache_ttl", c.CacheTTL, "primary read cache entry lifetime")
	fs.BoolVar(&c.StrictCycles, "strict_cycles", c.StrictCycles, "detect cycles along the whole import chain")
	fs.BoolVar(&c.ScanDependencyContent, "scan_dependency_content", c.ScanDependencyContent, "decide staging from the dependency's own directives")
	fs.BoolVar(&c.ReadOnlyAbsolute, "read_only_absolute", c.ReadOnlyAbsolute, "do not stage or follow dependencies found at their absolute path")
	fs.Var(&c.Extensions, "ext", "source extension (repeatable, first is canonical)")
	fs.BoolVar(&c.Compile, "compile", c.Compile, "run the compiler on the staged project")
	fs.StringVar(&c.Nargo, "nargo", c.Nargo, "nargo binary")
	fs.StringVar(&c.LogLevel, "log_level", c.LogLevel, "log level (debug|info|warn|error)")
	fs.Var(&c.LogFormat, "log_format", "log format (console|json)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "overall deadline (0 means none)")
}

// CheckFlags applies the YAML file and environment beneath the flags that
// were set explicitly, then validates the result.
func (c *Config) CheckFlags(fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	base := New()
	if c.ConfigFile != "" {
		if err := base.LoadFile(c.ConfigFile); err != nil {
			return err
		}
	}
	if err := loadEnvFile(c.EnvFile, explicit["env_file"]); err != nil {
		return err
	}
	base.ApplyEnv()

	scratch := flag.NewFlagSet("", flag.ContinueOnError)
	base.RegisterFlags(scratch)
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || explicit[f.Name] || f.Name == "config" || f.Name == "env_file" {
			return
		}
		if b := scratch.Lookup(f.Name); b != nil {
			if setErr := f.Value.Set(b.Value.String()); setErr != nil {
				err = fmt.Errorf("flag -%s: %w", f.Name, setErr)
			}
		}
	})
	if err != nil {
		return err
	}

	return c.Validate()
}

// LoadFile merges the YAML file at filename into c.  Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: decode %s: %w", filename, err)
	}
	return nil
}

func loadEnvFile(filename string, required bool) error {
	if filename == "" {
		return nil
	}
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("config: load %s: %w", filename, err)
	}
	return nil
}

// ApplyEnv overrides c with any NOIRSTAGE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Primary = procutil.LookupStringEnv(procutil.EnvPrimary, c.Primary)
	c.PrimaryDir = procutil.LookupStringEnv(procutil.EnvPrimaryDir, c.PrimaryDir)
	c.Staging = procutil.LookupStringEnv(procutil.EnvStaging, c.Staging)
	c.StagingDir = procutil.LookupStringEnv(procutil.EnvStagingDir, c.StagingDir)
	c.S3.Endpoint = procutil.LookupStringEnv(procutil.EnvS3Endpoint, c.S3.Endpoint)
	c.S3.Region = procutil.LookupStringEnv(procutil.EnvS3Region, c.S3.Region)
	c.S3.AccessKey = procutil.LookupStringEnv(procutil.EnvS3AccessKey, c.S3.AccessKey)
	c.S3.SecretKey = procutil.LookupStringEnv(procutil.EnvS3SecretKey, c.S3.SecretKey)
	c.S3.Bucket = procutil.LookupStringEnv(procutil.EnvS3Bucket, c.S3.Bucket)
	c.S3.Prefix = procutil.LookupStringEnv(procutil.EnvS3Prefix, c.S3.Prefix)
	c.S3.UseSSL = procutil.LookupBoolEnv(procutil.EnvS3UseSSL, c.S3.UseSSL)
	c.PostgresDSN = procutil.LookupStringEnv(procutil.EnvPostgresDSN, c.PostgresDSN)
	c.Project = procutil.LookupStringEnv(procutil.EnvProject, c.Project)
	c.HostURL = procutil.LookupStringEnv(procutil.EnvHostURL, c.HostURL)
	c.CacheSize = procutil.LookupIntEnv(procutil.EnvCacheSize, c.CacheSize)
	c.CacheTTL = procutil.LookupDurationEnv(procutil.EnvCacheTTL, c.CacheTTL)
	c.StrictCycles = procutil.LookupBoolEnv(procutil.EnvStrictCycles, c.StrictCycles)
	c.ScanDependencyContent = procutil.LookupBoolEnv(procutil.EnvScanDependencyContent, c.ScanDependencyContent)
	c.ReadOnlyAbsolute = procutil.LookupBoolEnv(procutil.EnvReadOnlyAbsolute, c.ReadOnlyAbsolute)
	c.Nargo = procutil.LookupStringEnv(procutil.EnvNargo, c.Nargo)
	c.LogLevel = procutil.LookupStringEnv(procutil.EnvLogLevel, c.LogLevel)
}

// Validate checks that the selected stores have what they need.
func (c *Config) Validate() error {
	switch c.Primary {
	case StoreMemory:
	case StoreDisk:
		if strings.TrimSpace(c.PrimaryDir) == "" {
			return fmt.Errorf("-primary_dir is required for -primary=%s", c.Primary)
		}
	case StoreS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("-s3_bucket is required for -primary=%s", c.Primary)
		}
	case StorePostgres:
		if c.PostgresDSN == "" || c.Project == "" {
			return fmt.Errorf("-pg_dsn and -project are required for -primary=%s", c.Primary)
		}
	case StoreHost:
		if c.HostURL == "" {
			return fmt.Errorf("-host_url is required for -primary=%s", c.Primary)
		}
	default:
		return fmt.Errorf("unknown primary store %q", c.Primary)
	}

	switch c.Staging {
	case StoreMemory:
	case StoreDisk:
		if strings.TrimSpace(c.StagingDir) == "" {
			return fmt.Errorf("-staging_dir is required for -staging=%s", c.Staging)
		}
	case StoreS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("-s3_bucket is required for -staging=%s", c.Staging)
		}
	default:
		return fmt.Errorf("unknown staging store %q", c.Staging)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("-cache_size must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// CanonicalExtension returns the first configured extension.
func (c *Config) CanonicalExtension() string {
	if len(c.Extensions) == 0 {
		return modpath.DefaultExtension
	}
	return c.Extensions[0]
}

// RecognizedExtensions returns the configured extensions after the first.
func (c *Config) RecognizedExtensions() []string {
	if len(c.Extensions) < 2 {
		return nil
	}
	return c.Extensions[1:]
}
