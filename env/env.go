// Package env reads configuration from the process environment. Every
// getter falls back from the variable itself to a _FILE indirection and
// then to a Docker/Kubernetes secrets file, so the same code works with
// plain variables, mounted files and secret stores.
//
// Struct-based parsing is available through Parse and ParseAs, which
// accept the `env:"..."` tags of github.com/caarlos0/env.
package env

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	envtags "github.com/caarlos0/env/v11"
)

// SecretsDir is the directory scanned for secret files named after the
// variable key. Override it in tests.
var SecretsDir = "/run/secrets"

// Get reads key from the environment. When the variable is unset or
// empty it tries, in order, the file named by key_FILE and the file
// SecretsDir/key, returning the first non-blank trimmed content. With
// nothing found it returns the optional default, or "".
func Get(key string, defaultValue ...string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	if path := os.Getenv(key + "_FILE"); path != "" {
		if value := readTrimmed(path); value != "" {
			return value
		}
	}

	if value := readTrimmed(filepath.Join(SecretsDir, key)); value != "" {
		return value
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// GetInt64 reads an integer variable through the same fallback chain as
// Get. Unset and unparsable values yield the optional default, or 0.
func GetInt64[T int | int64](key string, defaultValue ...T) int64 {
	if value := Get(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}

	if len(defaultValue) > 0 {
		return int64(defaultValue[0])
	}
	return 0
}

// GetInt is GetInt64 narrowed to int.
func GetInt(key string, defaultValue ...int) int {
	return int(GetInt64(key, defaultValue...))
}

// GetInt64Slice reads a comma-separated integer list. Parts that do not
// parse are skipped. Unset values yield the optional defaults, or nil.
func GetInt64Slice(key string, defaultValues ...int64) []int64 {
	if value := Get(key); value != "" {
		parts := strings.Split(value, ",")
		values := make([]int64, 0, len(parts))

		for _, part := range parts {
			if parsed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				values = append(values, parsed)
			}
		}
		return values
	}

	if len(defaultValues) > 0 {
		return defaultValues
	}
	return nil
}

// GetBool reads a boolean variable, accepting the strconv.ParseBool
// forms. Unset and unparsable values yield the optional default, or
// false.
func GetBool(key string, defaultValue ...bool) bool {
	if value := Get(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return false
}

// GetDuration reads a time.ParseDuration variable. Unset and unparsable
// values yield the optional default, or 0.
func GetDuration(key string, defaultValue ...time.Duration) time.Duration {
	if value := Get(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return 0
}

// Snapshot copies the current process environment into a map. Later
// changes to the environment are not reflected in the returned map.
func Snapshot() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Parse fills cfg, a pointer to a struct with `env:"..."` tags, from the
// environment.
func Parse(cfg any) error {
	return envtags.Parse(cfg)
}

// ParseAs builds a tagged config struct from the environment.
func ParseAs[T any]() (T, error) {
	return envtags.ParseAs[T]()
}

// readTrimmed returns the trimmed content of path, or "" when the file
// is missing, unreadable or blank.
func readTrimmed(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}
