package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func noenv(string) string { return "" }

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "HPI_LOCALE":
			return "en"
		case "HPI_DELAY":
			return "5ms"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "locale: ${HPI_LOCALE}",
			expected: "locale: en",
		},
		{
			name:     "with default (env set)",
			input:    "locale: ${HPI_LOCALE:-de}",
			expected: "locale: en",
		},
		{
			name:     "with default (env not set)",
			input:    "locale: ${UNSET_VAR:-de}",
			expected: "locale: de",
		},
		{
			name:     "multiple substitutions",
			input:    "x: ${HPI_LOCALE}/${HPI_DELAY}",
			expected: "x: en/5ms",
		},
		{
			name:     "unset without default",
			input:    "dsn: ${UNSET_VAR}",
			expected: "dsn: ",
		},
		{
			name:     "no interpolation",
			input:    "locale: de",
			expected: "locale: de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "hpi.yaml")

	configContent := `
locale: en
loop_delay: 10ms
matrikelnummer: 4711
clock: "2024-01-07 10:30:00"

http:
  timeout: 5s
  user_agent: hpi-test
  cookies: true

logging:
  level: debug
  format: json

journal:
  enabled: true
  driver: sqlite
  dsn: journal.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, resolved, err := LoadWithPath(configPath, noenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if resolved != configPath {
		t.Errorf("expected resolved path %q, got %q", configPath, resolved)
	}
	if cfg.Language() != language.English {
		t.Errorf("expected English, got %s", cfg.Language())
	}
	if cfg.LoopDelay != 10*time.Millisecond {
		t.Errorf("expected loop delay 10ms, got %s", cfg.LoopDelay)
	}
	if cfg.Matrikelnummer == nil || *cfg.Matrikelnummer != 4711 {
		t.Errorf("expected Matrikelnummer 4711, got %v", cfg.Matrikelnummer)
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.HTTP.UserAgent != "hpi-test" || !cfg.HTTP.Cookies {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected default output to survive, got %q", cfg.Logging.Output)
	}

	// Relative sqlite journal is resolved next to the config file
	if want := filepath.Join(dir, "journal.db"); cfg.Journal.DSN != want {
		t.Errorf("expected journal dsn %q, got %q", want, cfg.Journal.DSN)
	}

	clock, err := cfg.FixedClock()
	if err != nil {
		t.Fatalf("FixedClock failed: %v", err)
	}
	if clock.Year() != 2024 || clock.Month() != time.January || clock.Day() != 7 || clock.Hour() != 10 {
		t.Errorf("unexpected clock %s", clock)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "hpi.yaml")

	configContent := `
locale: ${HPI_LOCALE:-de}
journal:
  enabled: true
  driver: postgres
  dsn: ${JOURNAL_DSN}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "JOURNAL_DSN" {
			return "postgres://hpi@localhost/journal"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Locale != "de" {
		t.Errorf("expected default locale, got %q", cfg.Locale)
	}
	// Only sqlite paths are resolved
	if cfg.Journal.DSN != "postgres://hpi@localhost/journal" {
		t.Errorf("unexpected dsn %q", cfg.Journal.DSN)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	t.Setenv("HOME", dir)

	cfg, path, err := LoadWithPath("", noenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.LoopDelay != 50*time.Millisecond {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "unknown level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "unknown format",
		},
		{
			name:    "negative loop delay",
			modify:  func(c *Config) { c.LoopDelay = -time.Second },
			wantErr: "invalid loop_delay",
		},
		{
			name:    "unparseable clock",
			modify:  func(c *Config) { c.Clock = "irgendwann" },
			wantErr: "invalid clock",
		},
		{
			name:    "invalid locale",
			modify:  func(c *Config) { c.Locale = "!!" },
			wantErr: "invalid locale",
		},
		{
			name: "unknown journal driver",
			modify: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Driver = "oracle"
			},
			wantErr: `unknown driver "oracle"`,
		},
		{
			name: "journal without dsn",
			modify: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.DSN = ""
			},
			wantErr: "dsn is required",
		},
		{
			name: "disabled journal is not checked",
			modify: func(c *Config) {
				c.Journal.Driver = "oracle"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	_, err := resolveConfigPath("/nonexistent/path/hpi.yaml", noenv)
	if err == nil {
		t.Error("expected error for nonexistent path")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	resolved, err := resolveConfigPath(configPath, noenv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != configPath {
		t.Errorf("expected %q, got %q", configPath, resolved)
	}

	fromEnv := func(key string) string {
		if key == "HPI_CONFIG" {
			return configPath
		}
		return ""
	}
	resolved, err = resolveConfigPath("", fromEnv)
	if err != nil || resolved != configPath {
		t.Errorf("expected HPI_CONFIG path, got %q (%v)", resolved, err)
	}

	missing := func(key string) string {
		if key == "HPI_CONFIG" {
			return filepath.Join(dir, "fehlt.yaml")
		}
		return ""
	}
	if _, err := resolveConfigPath("", missing); err == nil || !strings.Contains(err.Error(), "HPI_CONFIG") {
		t.Errorf("expected HPI_CONFIG error, got %v", err)
	}
}
