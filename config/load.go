package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// Load is LoadWithPath without the resolved path.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads, interpolates and validates the config file. Without
// one it returns Defaults rooted in the working directory and an empty path.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		cfg.BaseDir, _ = os.Getwd()
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("config path %s: %w", path, err)
	}
	baseDir := filepath.Dir(absPath)

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", absPath, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(interpolateEnv(raw, getenv), cfg); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", absPath, err)
	}
	cfg.BaseDir = baseDir

	// Resolve a relative sqlite journal next to the config file
	if cfg.Journal.Driver == "sqlite" && cfg.Journal.DSN != "" && cfg.Journal.DSN != ":memory:" && !filepath.IsAbs(cfg.Journal.DSN) {
		cfg.Journal.DSN = filepath.Join(baseDir, cfg.Journal.DSN)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolveConfigPath picks the config file. An explicit path or HPI_CONFIG
// must exist; the default locations are optional and yield "" when absent.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	required := []struct{ source, path string }{
		{"config file", explicit},
		{"HPI_CONFIG file", getenv("HPI_CONFIG")},
	}
	for _, r := range required {
		if r.path == "" {
			continue
		}
		if _, err := os.Stat(r.path); err != nil {
			return "", fmt.Errorf("%s not found: %s", r.source, r.path)
		}
		return r.path, nil
	}

	optional := []string{"hpi.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		optional = append(optional, filepath.Join(home, ".config", "hpi", "hpi.yaml"))
	}
	for _, path := range optional {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// envPattern matches ${VAR} and ${VAR:-fallback}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv substitutes environment references. An unset or empty
// variable takes the fallback, or "" without one.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envPattern.FindSubmatch(ref)
		if v := getenv(string(m[1])); v != "" {
			return []byte(v)
		}
		return m[2]
	})
}

// Validate checks the configuration for errors.
// Call it again after applying CLI overrides.
func Validate(cfg *Config) error {
	var errs []string

	if _, err := language.Parse(strings.ReplaceAll(cfg.Locale, "_", "-")); err != nil {
		errs = append(errs, fmt.Sprintf("invalid locale: %q", cfg.Locale))
	}

	if cfg.LoopDelay < 0 {
		errs = append(errs, fmt.Sprintf("invalid loop_delay: %s (must not be negative)", cfg.LoopDelay))
	}

	if cfg.Clock != "" {
		if _, err := cfg.FixedClock(); err != nil {
			errs = append(errs, fmt.Sprintf("invalid clock: %v", err))
		}
	}

	if cfg.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid http.timeout: %s (must not be negative)", cfg.HTTP.Timeout))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging: unknown level %q (debug, info, warn, error)", cfg.Logging.Level))
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging: unknown format %q (text, json)", cfg.Logging.Format))
	}

	if cfg.Journal.Enabled {
		switch cfg.Journal.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("journal: unknown driver %q (supported: sqlite, postgres, mysql)", cfg.Journal.Driver))
		}
		if cfg.Journal.DSN == "" {
			errs = append(errs, "journal: dsn is required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// FixedClock parses the configured clock. Ambiguous dates are read day first.
func (c *Config) FixedClock() (time.Time, error) {
	return dateparse.ParseIn(c.Clock, time.Local, dateparse.PreferMonthFirst(false))
}

// Language returns the language runtime errors are reported in.
func (c *Config) Language() language.Tag {
	return perrors.SelectLanguage(c.Locale)
}
