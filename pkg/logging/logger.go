package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// SILENT - No logging output
	SILENT LogLevel = iota
	// ERROR - Only error messages
	ERROR
	// WARN - Warning and error messages
	WARN
	// INFO - Informational, warning, and error messages
	INFO
	// DEBUG - All messages including debug information
	DEBUG
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case SILENT:
		return "SILENT"
	case ERROR:
		return "ERROR"
	case WARN:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "SILENT":
		return SILENT
	case "ERROR":
		return ERROR
	case "WARN", "WARNING":
		return WARN
	case "INFO":
		return INFO
	case "DEBUG":
		return DEBUG
	default:
		return INFO // Default to INFO level
	}
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case SILENT:
		return zerolog.Disabled
	case ERROR:
		return zerolog.ErrorLevel
	case WARN:
		return zerolog.WarnLevel
	case INFO:
		return zerolog.InfoLevel
	case DEBUG:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config holds logger configuration
type Config struct {
	Level  LogLevel
	Output io.Writer
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  INFO,
		Output: os.Stdout,
	}
}

// Logger is a leveled, component-scoped logger backed by zerolog.
// Core packages consume it through narrow local interfaces so they
// never depend on this package directly.
type Logger struct {
	zl        zerolog.Logger
	level     LogLevel
	component string
	mutex     sync.RWMutex
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	zl := zerolog.New(config.Output).With().
		Timestamp().
		Str("comp", component).
		Logger().
		Level(config.Level.zerologLevel())

	return &Logger{
		zl:        zl,
		level:     config.Level,
		component: component,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.level = level
	l.zl = l.zl.Level(level.zerologLevel())
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.level
}

func (l *Logger) emit(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.Msg(msg)
}

// Error logs an error message with key-value context
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	l.emit(l.zl.Error(), msg, keysAndValues)
}

// Warn logs a warning message with key-value context
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	l.emit(l.zl.Warn(), msg, keysAndValues)
}

// Info logs an informational message with key-value context
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	l.emit(l.zl.Info(), msg, keysAndValues)
}

// Debug logs a debug message with key-value context
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	l.emit(l.zl.Debug(), msg, keysAndValues)
}

// Component-specific loggers
var componentLoggers = make(map[string]*Logger)
var componentMutex sync.RWMutex

// GetComponentLogger returns a logger for a specific component
func GetComponentLogger(component string) *Logger {
	componentMutex.RLock()
	logger, exists := componentLoggers[component]
	componentMutex.RUnlock()

	if exists {
		return logger
	}

	componentMutex.Lock()
	defer componentMutex.Unlock()

	// Double-check after acquiring write lock
	if logger, exists := componentLoggers[component]; exists {
		return logger
	}

	logger = NewLogger(component, DefaultConfig())
	componentLoggers[component] = logger

	return logger
}

// SetComponentLevel sets the logging level for a specific component
func SetComponentLevel(component string, level LogLevel) {
	GetComponentLogger(component).SetLevel(level)
}
