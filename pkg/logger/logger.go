package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackpad/stackpad/pkg/config"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled, component-tagged log lines. Structured context is
// passed as trailing key/value pairs: log.Info("channel opened", "session", id)
type Logger struct {
	level       LogLevel
	component   string
	logger      *log.Logger
	file        *os.File
	initialized bool
}

var defaultLogger *Logger

// Init initializes the default logger from the global config
func Init() error {
	if defaultLogger != nil && defaultLogger.initialized {
		return nil
	}

	settings := config.Get()
	level := parseLevel(settings.Logging.Level)

	logger, err := New(level, settings.Logging.LogFile, settings.Logging.Persist)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = logger
	return nil
}

// New creates a new Logger instance writing to the given file
func New(level LogLevel, logFile string, persist bool) (*Logger, error) {
	logPath := logFile
	if !filepath.IsAbs(logPath) {
		logPath = config.BuildSettingsPath(filepath.Base(logPath))
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if persist {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(logPath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		level:       level,
		logger:      log.New(file, "", log.LstdFlags),
		file:        file,
		initialized: true,
	}, nil
}

// WithComponent returns a logger tagged with the given component name,
// sharing the default logger's output and level
func WithComponent(component string) *Logger {
	base := defaultLogger
	if base == nil {
		// Not initialized; discard output but keep the API usable.
		base = &Logger{level: LevelFatal, logger: log.New(io.Discard, "", 0)}
	}
	return &Logger{
		level:       base.level,
		component:   component,
		logger:      base.logger,
		initialized: base.initialized,
	}
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// parseLevel converts a string level to LogLevel
func parseLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.level
}

// formatKeyvals renders trailing key/value pairs as " k=v k=v"
func formatKeyvals(keyvals []interface{}) string {
	if len(keyvals) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprintf("%v", keyvals[i])
		val := "(missing)"
		if i+1 < len(keyvals) {
			val = fmt.Sprintf("%v", keyvals[i+1])
		}
		fmt.Fprintf(&b, " %s=%s", key, val)
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, keyvals ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	line := msg + formatKeyvals(keyvals)
	if l.component != "" {
		l.logger.Printf("[%s] [%s] %s", level.String(), l.component, line)
	} else {
		l.logger.Printf("[%s] %s", level.String(), line)
	}

	if level >= LevelError {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level.String(), line)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, msg, keyvals...)
}

// Info logs an info message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, msg, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(LevelWarn, msg, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, msg, keyvals...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, keyvals ...interface{}) {
	l.log(LevelFatal, msg, keyvals...)
	os.Exit(1)
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Debug(msg, keyvals...)
}

// Info logs an info message using the default logger
func Info(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Info(msg, keyvals...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Warn(msg, keyvals...)
}

// Error logs an error message using the default logger
func Error(msg string, keyvals ...interface{}) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.Error(msg, keyvals...)
}

// SetOutput sets the output writer for the default logger (useful for testing)
func SetOutput(w io.Writer) {
	if defaultLogger != nil && defaultLogger.logger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
