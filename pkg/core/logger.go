package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the interface for logging in the portal.
type Logger interface {
	// Debug logs a debug message
	Debug(format string, args ...interface{})

	// Info logs an info message
	Info(format string, args ...interface{})

	// Warn logs a warning message
	Warn(format string, args ...interface{})

	// Error logs an error message
	Error(format string, args ...interface{})

	// With returns a logger that attaches the given field to every entry.
	With(key string, value interface{}) Logger
}

// LogLevel represents the logging level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelSilent
)

// ParseLogLevel converts a config string into a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "silent", "off", "none":
		return LogLevelSilent
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError, LogLevelSilent:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// LogrusLogger implements Logger on top of a logrus entry.
type LogrusLogger struct {
	entry *logrus.Entry
}

// LoggerOptions configures NewLogrusLogger.
type LoggerOptions struct {
	Level  LogLevel
	JSON   bool
	Output io.Writer
}

// NewLogrusLogger creates a logger tagged with component.
func NewLogrusLogger(component string, opts LoggerOptions) *LogrusLogger {
	base := logrus.New()
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Level == LogLevelSilent {
		out = io.Discard
	}
	base.SetOutput(out)
	base.SetLevel(opts.Level.logrusLevel())
	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	entry := logrus.NewEntry(base)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return &LogrusLogger{entry: entry}
}

func (l *LogrusLogger) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Info(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warn(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// With returns a child logger carrying key=value.
func (l *LogrusLogger) With(key string, value interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

// Named returns a child logger for another component sharing the same output.
func Named(l Logger, component string) Logger {
	return l.With("component", component)
}

// NopLogger is a no-op logger that discards all messages.
type NopLogger struct{}

func (l *NopLogger) Debug(format string, args ...interface{}) {}
func (l *NopLogger) Info(format string, args ...interface{})  {}
func (l *NopLogger) Warn(format string, args ...interface{})  {}
func (l *NopLogger) Error(format string, args ...interface{}) {}
func (l *NopLogger) With(key string, value interface{}) Logger {
	return l
}

// Global default logger - can be replaced at startup
var defaultLogger Logger = &NopLogger{}

// SetDefaultLogger sets the global default logger.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = &NopLogger{}
	}
	defaultLogger = logger
}

// GetDefaultLogger returns the global default logger.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return &NopLogger{}
	}
	return l
}

// Ensure implementations satisfy the interface
var (
	_ Logger = (*LogrusLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// String is used by %v in log lines.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelSilent:
		return "silent"
	}
	return fmt.Sprintf("level(%d)", int(l))
}
