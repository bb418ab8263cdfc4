// Package logging provides a tiny abstraction over slog so the bridge can
// depend on a minimal interface (Logger) while allowing hosts to plug any
// structured logger. It also offers a BridgeLogger with contextual helpers
// (turn, transport) and domain specific helpers for recall and capture calls.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface used across the bridge. This
// allows callers to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// LoggerConfig configures construction of a BridgeLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Transport string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
// Output goes to stderr: on the stdio transport stdout belongs to the host
// protocol and must stay clean.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// BridgeLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It is cheap to copy via With* methods.
type BridgeLogger struct {
	logger    *slog.Logger
	level     LogLevel
	transport string
	turnID    string
}

// NewLogger builds a BridgeLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *BridgeLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &BridgeLogger{logger: slog.New(handler), level: cfg.Level, transport: cfg.Transport}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTransport sets the transport attribute attached to every entry.
func (l *BridgeLogger) WithTransport(t string) *BridgeLogger {
	nl := *l
	nl.transport = t
	return &nl
}

// WithTurn attaches a turn identifier.
func (l *BridgeLogger) WithTurn(id string) *BridgeLogger {
	nl := *l
	nl.turnID = id
	return &nl
}

func (l *BridgeLogger) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(extra)+2)
	if l.transport != "" {
		attrs = append(attrs, slog.String("transport", l.transport))
	}
	if l.turnID != "" {
		attrs = append(attrs, slog.String("turn_id", l.turnID))
	}
	return append(attrs, extra...)
}

func (l *BridgeLogger) log(level slog.Level, msg string, args ...any) {
	l.logger.LogAttrs(context.Background(), level, msg, append(l.attrs(), argsToAttrs(args)...)...)
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

// Debug logs at debug level.
func (l *BridgeLogger) Debug(msg string, args ...any) {
	if l.level <= LogLevelDebug {
		l.log(slog.LevelDebug, msg, args...)
	}
}

// Info logs at info level.
func (l *BridgeLogger) Info(msg string, args ...any) {
	if l.level <= LogLevelInfo {
		l.log(slog.LevelInfo, msg, args...)
	}
}

// Warn logs at warn level.
func (l *BridgeLogger) Warn(msg string, args ...any) {
	if l.level <= LogLevelWarn {
		l.log(slog.LevelWarn, msg, args...)
	}
}

// Error logs at error level.
func (l *BridgeLogger) Error(msg string, args ...any) {
	if l.level <= LogLevelError {
		l.log(slog.LevelError, msg, args...)
	}
}

// LogRecall records the outcome of a pre-turn memory search.
func (l *BridgeLogger) LogRecall(query string, hits int, dur time.Duration, err error) {
	attrs := l.attrs(
		slog.Int("query_length", len(query)),
		slog.Int("hits", hits),
		slog.Duration("duration", dur),
	)
	level := slog.LevelInfo
	msg := "Memory recall completed"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelWarn
		msg = "Memory recall failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogCapture records the outcome of a post-turn memory save.
func (l *BridgeLogger) LogCapture(facts int, dur time.Duration, err error) {
	attrs := l.attrs(
		slog.Int("fact_count", facts),
		slog.Duration("duration", dur),
	)
	level := slog.LevelInfo
	msg := "Memory capture completed"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelWarn
		msg = "Memory capture failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// NewSlogLogger creates a new BridgeLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *BridgeLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
