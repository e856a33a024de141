// Package logging writes the leveled diagnostics of the hpi command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	}
	return "ERROR"
}

// ParseLevel converts a configured level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Entry is one line of JSON log output
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger writes messages at or above its level as text or JSON lines.
// It satisfies the evaluator's Debugf logger.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	format string // "json" or "text"
	now    func() time.Time
}

// New creates a logger. An empty format means text.
func New(out io.Writer, level Level, format string) *Logger {
	if format == "" {
		format = "text"
	}
	return &Logger{out: out, level: level, format: format, now: time.Now}
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		data, err := json.Marshal(Entry{
			Timestamp: l.now().Format(time.RFC3339),
			Level:     strings.ToLower(level.String()),
			Message:   msg,
		})
		if err != nil {
			return
		}
		fmt.Fprintf(l.out, "%s\n", data)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
}

// Debugf logs a debug message
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs an info message
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs a warning message
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Errorf logs an error message
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// Open resolves a configured output: "stderr", "stdout" or a file path,
// which is appended to. baseDir anchors relative paths. The returned close
// function is a no-op for the standard streams.
func Open(output, baseDir string, stdout, stderr io.Writer) (io.Writer, func() error, error) {
	switch output {
	case "", "stderr":
		return stderr, func() error { return nil }, nil
	case "stdout":
		return stdout, func() error { return nil }, nil
	}

	path := output
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, f.Close, nil
}
