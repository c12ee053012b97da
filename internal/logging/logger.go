package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
//
// It intentionally stays an interface so packages can depend on this
// package without committing to a concrete sink.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// fileLogger writes component-tagged lines to cadence-debug.log in the
// user's home directory, falling back to stderr when the file cannot be
// opened.
type fileLogger struct {
	mu        sync.Mutex
	logger    *log.Logger
	level     Level
	component string
}

var (
	rootInstance *fileLogger
	rootOnce     sync.Once
)

func root() *fileLogger {
	rootOnce.Do(func() {
		rootInstance = newFileLogger(DEBUG)
	})
	return rootInstance
}

func newFileLogger(level Level) *fileLogger {
	l := &fileLogger{level: level, logger: log.New(os.Stderr, "", 0)}
	home, err := os.UserHomeDir()
	if err != nil {
		return l
	}
	logPath := filepath.Join(home, "cadence-debug.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return l
	}
	l.logger = log.New(file, "", 0)
	return l
}

// NewComponentLogger returns the default application logger scoped to a
// component.
func NewComponentLogger(component string) Logger {
	base := root()
	return &fileLogger{logger: base.logger, level: base.level, component: component}
}

// SetLevel adjusts the minimum level written by the process-wide logger.
func SetLevel(level Level) {
	root().level = level
}

func (l *fileLogger) write(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	component := l.component
	if component == "" {
		component = "core"
	}
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, level, component, fmt.Sprintf(format, args...))
}

func (l *fileLogger) Debug(format string, args ...any) { l.write(DEBUG, format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.write(INFO, format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.write(WARN, format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.write(ERROR, format, args...) }
