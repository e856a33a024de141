package config

import (
	"time"
)

// Config represents the complete hpi configuration
type Config struct {
	BaseDir        string        `yaml:"-"`              // Directory containing config file, for resolving relative paths
	Locale         string        `yaml:"locale"`         // Language of runtime error messages: "de" (default) or "en"
	LoopDelay      time.Duration `yaml:"loop_delay"`     // Pause before every loop iteration (default: 50ms)
	Matrikelnummer *uint32       `yaml:"matrikelnummer"` // Fixed student number instead of a random one
	Clock          string        `yaml:"clock"`          // Fixed wall clock for Zeit(), any format dateparse understands
	HTTP           HTTPConfig    `yaml:"http"`
	Logging        LoggingConfig `yaml:"logging"`
	Journal        JournalConfig `yaml:"journal"`
	Watch          WatchConfig   `yaml:"watch"`
}

// HTTPConfig holds settings for the Http builtin
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`    // Per-request timeout (default: 30s)
	UserAgent string        `yaml:"user_agent"` // Sent unless the program sets its own
	Cookies   bool          `yaml:"cookies"`    // Keep cookies between requests of one run
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// JournalConfig holds settings of the run journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // sqlite, postgres or mysql
	DSN     string `yaml:"dsn"`    // Path for sqlite, connection string otherwise
}

// WatchConfig holds settings of `hpi watch`
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before rerunning (default: 100ms)
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Locale:    "de",
		LoopDelay: 50 * time.Millisecond,
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Journal: JournalConfig{
			Enabled: false,
			Driver:  "sqlite",
			DSN:     "hpi-journal.db",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
	}
}
