// Package logging provides the diagnostic sink used by the dirsync engine.
//
// A Logger is created once at startup and handed to the components that
// need it; there is no package-level logger.
//
//	logger, err := logging.New(logging.Config{Level: logging.LevelFor(verbose)})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.With("component", "scanner").Info("scan started", "root", "/data")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
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
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
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
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// LevelFor maps the verbosity toggle to a level name: verbose runs log
// everything, quiet runs only warnings and errors.
func LevelFor(verbose bool) string {
	if verbose {
		return LevelDebug.String()
	}
	return LevelWarn.String()
}

// Config configures a Logger.
type Config struct {
	// Level is the threshold for console output (debug, info, warn, error).
	Level string

	// Console is where console output goes. Nil means os.Stderr.
	Console io.Writer

	// File enables the log file in addition to the console.
	File bool

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// FileLevel is the threshold for the log file. Empty uses Level.
	FileLevel string

	// Rotation configures log file rotation.
	Rotation RotationConfig
}

// Logger wraps charmbracelet/log. It writes to the console and, when
// configured, to a rotating log file with full timestamps.
type Logger struct {
	console *log.Logger
	file    *log.Logger
	writer  *RotatingWriter
}

// New creates a Logger from the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		console: log.NewWithOptions(console, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		}),
	}

	if !cfg.File {
		return l, nil
	}

	fileLevel := level
	if cfg.FileLevel != "" {
		fileLevel, err = ParseLevel(cfg.FileLevel)
		if err != nil {
			return nil, fmt.Errorf("parsing file log level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return nil, fmt.Errorf("creating log writer: %w", err)
	}

	l.writer = writer
	l.file = log.NewWithOptions(writer, log.Options{
		Level:           fileLevel.toCharmLevel(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{
		console: log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel}),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	logTo(l.console, level, msg, args...)
	if l.file != nil {
		logTo(l.file, level, msg, args...)
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context. The returned logger
// shares the underlying file writer; only the root logger should be closed.
func (l *Logger) With(args ...interface{}) *Logger {
	child := &Logger{console: l.console.With(args...)}
	if l.file != nil {
		child.file = l.file.With(args...)
	}
	return child
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	if err := l.writer.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	l.writer = nil
	return nil
}

// DefaultLogPath returns the default log file path.
// It uses $XDG_STATE_HOME/dirsync/dirsync.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "dirsync", "dirsync.log")
}
