package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String returns the string representation of the log level
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
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLogLevel maps a level name from configuration to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "fatal":
		return LogLevelFatal, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})

	SetLevel(level LogLevel)
	SetOutput(w io.Writer)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogFormat represents the console output format
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
	LogFormatCompact
)

// ParseLogFormat maps a format name from configuration to a LogFormat.
func ParseLogFormat(s string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return LogFormatJSON
	case "compact":
		return LogFormatCompact
	default:
		return LogFormatText
	}
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level       LogLevel
	Format      LogFormat
	Output      io.Writer
	FilePath    string // truncated on open, always JSON
	EnableColor bool
}

// DefaultLoggerConfig returns a default logger configuration.
// Output goes to stderr; stdout carries command results.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:       LogLevelInfo,
		Format:      LogFormatText,
		Output:      os.Stderr,
		EnableColor: true,
	}
}

// CrawlerLogger is the zerolog-backed Logger.
type CrawlerLogger struct {
	config *LoggerConfig
	zl     zerolog.Logger
	file   *os.File
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config *LoggerConfig) (*CrawlerLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}

	l := &CrawlerLogger{config: config}
	if err := l.setupOutput(); err != nil {
		return nil, fmt.Errorf("failed to setup logger output: %w", err)
	}
	return l, nil
}

func (l *CrawlerLogger) setupOutput() error {
	var console io.Writer = l.config.Output
	switch l.config.Format {
	case LogFormatText:
		console = zerolog.ConsoleWriter{Out: l.config.Output, NoColor: !l.config.EnableColor, TimeFormat: "2006-01-02 15:04:05"}
	case LogFormatCompact:
		console = zerolog.ConsoleWriter{
			Out:         l.config.Output,
			NoColor:     !l.config.EnableColor,
			TimeFormat:  "15:04:05",
			FormatLevel: func(i interface{}) string { return strings.ToUpper(fmt.Sprintf("%.1s", i)) },
		}
	}

	out := console
	if l.config.FilePath != "" && l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.config.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(l.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
	}
	if l.file != nil {
		out = zerolog.MultiLevelWriter(console, l.file)
	}

	l.zl = zerolog.New(out).Level(l.config.Level.zerolog()).With().Timestamp().Logger()
	return nil
}

func (l *CrawlerLogger) emit(ev *zerolog.Event, msg string, args []interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	ev.Msg(msg)
}

// Debug logs a debug message
func (l *CrawlerLogger) Debug(msg string, args ...interface{}) {
	l.emit(l.zl.Debug(), msg, args)
}

// Info logs an info message
func (l *CrawlerLogger) Info(msg string, args ...interface{}) {
	l.emit(l.zl.Info(), msg, args)
}

// Warn logs a warning message
func (l *CrawlerLogger) Warn(msg string, args ...interface{}) {
	l.emit(l.zl.Warn(), msg, args)
}

// Error logs an error message
func (l *CrawlerLogger) Error(msg string, args ...interface{}) {
	l.emit(l.zl.Error(), msg, args)
}

// Fatal logs a fatal message and exits
func (l *CrawlerLogger) Fatal(msg string, args ...interface{}) {
	l.emit(l.zl.Fatal(), msg, args)
}

// SetLevel sets the logging level
func (l *CrawlerLogger) SetLevel(level LogLevel) {
	l.config.Level = level
	l.zl = l.zl.Level(level.zerolog())
}

// SetOutput sets the console writer; the log file, if any, is kept.
func (l *CrawlerLogger) SetOutput(w io.Writer) {
	l.config.Output = w
	_ = l.setupOutput()
}

// WithField returns a logger with an additional field
func (l *CrawlerLogger) WithField(key string, value interface{}) Logger {
	return &CrawlerLogger{
		config: l.config,
		zl:     l.zl.With().Interface(key, value).Logger(),
		file:   l.file,
	}
}

// WithFields returns a logger with additional fields
func (l *CrawlerLogger) WithFields(fields map[string]interface{}) Logger {
	return &CrawlerLogger{
		config: l.config,
		zl:     l.zl.With().Fields(fields).Logger(),
		file:   l.file,
	}
}

// Close closes the log file, if one is open.
func (l *CrawlerLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NopLogger discards everything.
func NopLogger() Logger {
	l, _ := NewLogger(&LoggerConfig{Level: LogLevelFatal, Format: LogFormatJSON, Output: io.Discard})
	l.zl = zerolog.Nop()
	return l
}

// Global logger instance
var globalLogger Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(config *LoggerConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	if globalLogger == nil {
		logger, _ := NewLogger(DefaultLoggerConfig())
		globalLogger = logger
	}
	return globalLogger
}

// CloseGlobalLogger flushes and closes the global log file, if any.
func CloseGlobalLogger() error {
	if l, ok := globalLogger.(*CrawlerLogger); ok {
		return l.Close()
	}
	return nil
}

// Convenience functions for global logger
func Debug(msg string, args ...interface{}) {
	GetGlobalLogger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	GetGlobalLogger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	GetGlobalLogger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	GetGlobalLogger().Error(msg, args...)
}

func Fatal(msg string, args ...interface{}) {
	GetGlobalLogger().Fatal(msg, args...)
}
