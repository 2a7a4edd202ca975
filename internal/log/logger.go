package log

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/grievance/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler = slog.NewTextHandler(config.writer(), opts)
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(config.writer(), opts)
	}

	logger := slog.New(handler)
	if config.ServiceName != "" {
		logger = logger.With("service", config.ServiceName, "version", config.ServiceVersion)
	}

	return &Logger{
		slog:   logger,
		config: config,
	}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return New(Config{Level: LevelError, Writer: io.Discard})
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithError adds error details to the logger.
// An AppError anywhere in the chain contributes its code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorAttrs(err, false)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// CommandFailed records the full error chain of a failed command at debug
// level. The user already sees the rendered error on stderr; --verbose adds
// the chain.
func (l *Logger) CommandFailed(ctx context.Context, command string, err error) {
	if err == nil {
		return
	}
	args := append([]any{"command", command}, errorAttrs(err, true)...)
	l.slog.DebugContext(ctx, "command failed", args...)
}

func errorAttrs(err error, full bool) []any {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		if full {
			return []any{"error", err.Error(), "chain", chain(err)}
		}
		return []any{"error", err.Error()}
	}

	args := []any{
		"error", appErr.Message,
		"error_code", string(appErr.Code),
	}
	if len(appErr.Suggestions) > 0 {
		args = append(args, "suggestions", appErr.Suggestions)
	}
	if full && appErr.DocsURL != "" {
		args = append(args, "docs_url", appErr.DocsURL)
	}
	if appErr.Cause != nil {
		args = append(args, "cause", appErr.Cause.Error())
	}
	if full {
		args = append(args, "chain", chain(err))
	}
	return args
}

// chain lists the distinct messages down the Unwrap chain
func chain(err error) []string {
	var msgs []string
	last := ""
	for ; err != nil; err = stderrors.Unwrap(err) {
		if msg := err.Error(); msg != last {
			msgs = append(msgs, msg)
			last = msg
		}
	}
	return msgs
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level)
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}
