// Package logger provides the leveled console/file logger the library and
// the headless host log through. cmd wires slog's default logger to it so
// every slog call in the process lands in the same place.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level's display name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config describes where and how much to log.
type Config struct {
	Level   string `json:"level,omitempty"`  // debug, info, warn, error
	File    string `json:"file,omitempty"`   // log file path, empty for console only
	Prefix  string `json:"prefix,omitempty"` // prepended to every line
	Console bool   `json:"console"`          // also write to stderr
}

// Logger is a thread-safe leveled logger writing to console and/or file.
type Logger struct {
	mu      sync.Mutex
	level   Level
	prefix  string
	console io.Writer
	file    io.WriteCloser
}

// New creates a logger from config. A file path that cannot be opened is an
// error; console-only config never fails.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:  ParseLevel(cfg.Level),
		prefix: cfg.Prefix,
	}
	if cfg.Console {
		l.console = os.Stderr
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// NewConsole creates a console-only logger at the given level.
func NewConsole(level Level) *Logger {
	return &Logger{level: level, console: os.Stderr}
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) levelNow() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	line := fmt.Sprintf("%s%s [%s] %s\n",
		l.prefix,
		time.Now().Format("2006-01-02 15:04:05"),
		level.String(),
		fmt.Sprintf(format, args...))
	if l.console != nil {
		l.console.Write([]byte(line))
	}
	if l.file != nil {
		l.file.Write([]byte(line))
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) { l.log(LevelInfo, format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) { l.log(LevelWarn, format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

// Slog returns a *slog.Logger backed by this logger, for packages that speak
// slog. Attributes are rendered key=value after the message.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&slogHandler{logger: l})
}
