// Package logger is the leveled logger for the tracker. Terminal
// output goes to stderr; check passes can additionally append to a
// state-directory log file so scheduled runs leave a trail.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// Logger writes leveled messages. A Logger obtained via Named shares
// the root's level, sink and file; only the prefix differs.
type Logger struct {
	level  Level
	output io.Writer
	file   *os.File
	mu     sync.Mutex

	prefix string
	root   *Logger // nil on the root logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{
			level:  LevelInfo,
			output: os.Stderr,
		}
	})
	return defaultLogger
}

// base resolves the root logger holding level, sink and file state.
func (l *Logger) base() *Logger {
	if l.root != nil {
		return l.root
	}
	return l
}

// Named returns a logger that prefixes every message with a component
// name, sharing the receiver's level and sinks.
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{prefix: prefix, root: l.base()}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	b := l.base()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
}

// SetVerbose enables debug output
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.SetLevel(LevelDebug)
	}
}

// SetQuiet disables all output except errors
func (l *Logger) SetQuiet(quiet bool) {
	if quiet {
		l.SetLevel(LevelError)
	}
}

// EnableFileLogging opens the run log and writes a separator so the
// entries of one pass can be told apart from the previous one.
func (l *Logger) EnableFileLogging() error {
	b := l.base()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return nil
	}

	logDir, err := LogDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, "libtrack.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	fmt.Fprintf(f, "---- run %s ----\n", time.Now().Format("2006-01-02 15:04:05"))
	b.file = f
	return nil
}

// CloseFile closes the run log if open.
func (l *Logger) CloseFile() {
	b := l.base()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
}

// LogDir returns the run-log directory under XDG state.
func LogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	xdgState := os.Getenv("XDG_STATE_HOME")
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(xdgState, "libtrack", "logs"), nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	b := l.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	if level < b.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = l.prefix + ": " + msg
	}

	fmt.Fprintln(b.output, msg)
	if b.file != nil {
		fmt.Fprintf(b.file, "%s %s %s\n", time.Now().Format("2006-01-02 15:04:05"), levelNames[level], msg)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }
func Info(format string, args ...interface{})  { Default().Info(format, args...) }
func Warn(format string, args ...interface{})  { Default().Warn(format, args...) }
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
func SetVerbose(v bool)                        { Default().SetVerbose(v) }
func SetQuiet(q bool)                          { Default().SetQuiet(q) }
func Named(prefix string) *Logger              { return Default().Named(prefix) }
func EnableFileLogging() error                 { return Default().EnableFileLogging() }
func CloseFile()                               { Default().CloseFile() }
