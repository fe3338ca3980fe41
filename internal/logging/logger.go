// Package logging wraps zerolog with subsystem-scoped child loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog to provide subsystem-scoped child loggers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a root logger writing to the given writer at the specified level.
// If w is nil, defaults to pretty console output on stderr.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{zl: zl}
}

// Options selects console style and an optional JSON log file.
type Options struct {
	Level        string
	ConsoleLevel string
	ConsoleStyle string // "pretty" | "compact" | "json"
	File         string
	Console      io.Writer // defaults to stderr
}

// Setup builds a root logger from Options. The returned closer releases the
// log file, if one was opened; it is never nil.
func Setup(opts Options) (*Logger, io.Closer, error) {
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer
	switch opts.ConsoleStyle {
	case "json":
		console = out
	case "compact":
		console = zerolog.ConsoleWriter{Out: out, PartsExclude: []string{zerolog.TimestampFieldName}}
	default:
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	consoleLevel := opts.ConsoleLevel
	if consoleLevel == "" {
		consoleLevel = opts.Level
	}
	writers := []io.Writer{&levelWriter{w: console, min: parseLevel(consoleLevel)}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	zl = zl.Level(minLevel(parseLevel(opts.Level), parseLevel(consoleLevel)))
	return &Logger{zl: zl}, closer, nil
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info logs at info level.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn logs at warn level.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error logs at error level.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog returns the underlying zerolog.Logger for advanced use.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

// levelWriter drops events below min before they reach w.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw *levelWriter) Write(p []byte) (int, error) { return lw.w.Write(p) }

func (lw *levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if lw.min == zerolog.Disabled || level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func minLevel(a, b zerolog.Level) zerolog.Level {
	if a == zerolog.Disabled {
		return b
	}
	if b == zerolog.Disabled || a < b {
		return a
	}
	return b
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "silent":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
