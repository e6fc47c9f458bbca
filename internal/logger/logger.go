// Package logger provides the structured logger used across crucible. It
// keeps a small interface of its own so packages never import the backend
// directly; output is rendered by charmbracelet/log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelSilent:
		return "silent"
	default:
		return "unknown"
	}
}

// ParseLevel converts a config string into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "off", "none":
		return LevelSilent, nil
	default:
		return LevelWarn, fmt.Errorf("invalid log level %q (must be debug, info, warn, error, or silent)", s)
	}
}

// Logger provides structured logging with configurable levels
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// F is a convenience function for creating fields
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// charmLogger implements Logger on top of charmbracelet/log
type charmLogger struct {
	base *log.Logger
}

// silentLevel sits above every level charmbracelet/log emits
const silentLevel = log.FatalLevel + 1

func toCharmLevel(level Level) log.Level {
	switch level {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return silentLevel
	}
}

// NewLogger creates a new logger with the specified level and output
func NewLogger(level Level, out io.Writer) Logger {
	if out == nil {
		out = os.Stderr
	}
	base := log.NewWithOptions(out, log.Options{
		Level:           toCharmLevel(level),
		Prefix:          "crucible",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return &charmLogger{base: base}
}

// NewDefaultLogger creates a logger with Warn level writing to stderr
func NewDefaultLogger() Logger {
	return NewLogger(LevelWarn, os.Stderr)
}

// NewSilentLogger creates a logger that outputs nothing
func NewSilentLogger() Logger {
	return NewLogger(LevelSilent, io.Discard)
}

// SetLevel sets the minimum logging level
func (l *charmLogger) SetLevel(level Level) {
	l.base.SetLevel(toCharmLevel(level))
}

// WithFields returns a new logger with additional fields
func (l *charmLogger) WithFields(fields ...Field) Logger {
	return &charmLogger{base: l.base.With(keyvals(fields)...)}
}

// Debug logs a debug message
func (l *charmLogger) Debug(msg string, fields ...Field) {
	l.base.Debug(msg, keyvals(fields)...)
}

// Info logs an info message
func (l *charmLogger) Info(msg string, fields ...Field) {
	l.base.Info(msg, keyvals(fields)...)
}

// Warn logs a warning message
func (l *charmLogger) Warn(msg string, fields ...Field) {
	l.base.Warn(msg, keyvals(fields)...)
}

// Error logs an error message
func (l *charmLogger) Error(msg string, fields ...Field) {
	l.base.Error(msg, keyvals(fields)...)
}

func keyvals(fields []Field) []any {
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

// Global default logger
var defaultLogger = NewDefaultLogger()

// SetDefault sets the global default logger
func SetDefault(l Logger) {
	defaultLogger = l
}

// Default returns the global default logger
func Default() Logger {
	return defaultLogger
}

// Convenience functions using the default logger
func Debug(msg string, fields ...Field) {
	defaultLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	defaultLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	defaultLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	defaultLogger.Error(msg, fields...)
}
