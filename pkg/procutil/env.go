package procutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvVar names an environment variable consulted by the configuration layer.
type EnvVar string

const (
	EnvPrimary               EnvVar = "NOIRSTAGE_PRIMARY"
	EnvPrimaryDir            EnvVar = "NOIRSTAGE_PRIMARY_DIR"
	EnvStaging               EnvVar = "NOIRSTAGE_STAGING"
	EnvStagingDir            EnvVar = "NOIRSTAGE_STAGING_DIR"
	EnvS3Endpoint            EnvVar = "NOIRSTAGE_S3_ENDPOINT"
	EnvS3Region              EnvVar = "NOIRSTAGE_S3_REGION"
	EnvS3AccessKey           EnvVar = "NOIRSTAGE_S3_ACCESS_KEY"
	EnvS3SecretKey           EnvVar = "NOIRSTAGE_S3_SECRET_KEY"
	EnvS3Bucket              EnvVar = "NOIRSTAGE_S3_BUCKET"
	EnvS3Prefix              EnvVar = "NOIRSTAGE_S3_PREFIX"
	EnvS3UseSSL              EnvVar = "NOIRSTAGE_S3_USE_SSL"
	EnvPostgresDSN           EnvVar = "NOIRSTAGE_PG_DSN"
	EnvProject               EnvVar = "NOIRSTAGE_PROJECT"
	EnvHostURL               EnvVar = "NOIRSTAGE_HOST_URL"
	EnvCacheSize             EnvVar = "NOIRSTAGE_CACHE_SIZE"
	EnvCacheTTL              EnvVar = "NOIRSTAGE_CACHE_TTL"
	EnvStrictCycles          EnvVar = "NOIRSTAGE_STRICT_CYCLES"
	EnvScanDependencyContent EnvVar = "NOIRSTAGE_SCAN_DEPENDENCY_CONTENT"
	EnvReadOnlyAbsolute      EnvVar = "NOIRSTAGE_READ_ONLY_ABSOLUTE"
	EnvNargo                 EnvVar = "NOIRSTAGE_NARGO"
	EnvLogLevel              EnvVar = "NOIRSTAGE_LOG_LEVEL"
)

func LookupBoolEnv(name EnvVar, defaultValue bool) bool {
	if val, ok := os.LookupEnv(string(name)); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func LookupEnv(name EnvVar) (string, bool) {
	val, ok := os.LookupEnv(string(name))
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

// LookupStringEnv returns the trimmed value of name, or defaultValue when it
// is unset or blank.
func LookupStringEnv(name EnvVar, defaultValue string) string {
	if val, ok := LookupEnv(name); ok {
		return val
	}
	return defaultValue
}

// LookupIntEnv parses name as a base-10 int.  Unparseable values yield
// defaultValue.
func LookupIntEnv(name EnvVar, defaultValue int) int {
	if val, ok := LookupEnv(name); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultValue
}

// LookupDurationEnv parses name with time.ParseDuration.
func LookupDurationEnv(name EnvVar, defaultValue time.Duration) time.Duration {
	if val, ok := LookupEnv(name); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
