package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a slog level; the CLI only uses the four named ones
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel maps a logging.level setting to a Level.
// "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "", "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// Format selects the slog handler
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format

	// Writer receives records; nil means stderr. Command output owns
	// stdout, so diagnostics never go there.
	Writer io.Writer

	// AddSource includes file and line, set by --verbose
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stderr
	}
	return c.Writer
}

// DefaultConfig logs warnings and above as text to stderr
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		ServiceName:    "grievance",
		ServiceVersion: "dev",
	}
}

// FromSettings builds a Config from the logging section of the CLI config.
// verbose forces debug level with source locations. Unknown levels fall
// back to warn; config validation reports them before this runs.
func FromSettings(level, format string, verbose bool) Config {
	cfg := DefaultConfig()
	if verbose {
		cfg.Level = LevelDebug
		cfg.AddSource = true
	} else if lvl, err := ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	if strings.EqualFold(strings.TrimSpace(format), string(FormatJSON)) {
		cfg.Format = FormatJSON
	}
	return cfg
}
