// Package logging provides structured logging for the TUI and subcommands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger wraps zerolog. A nil *Logger discards everything.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a console logger writing to w at the given level.
func New(w io.Writer, level string) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(w),
	}
	zlog := zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zlog: zlog}
}

// NewFile opens (or creates) a log file and returns a logger writing to it.
// The TUI owns the terminal, so interactive sessions log here instead of stderr.
func NewFile(path, level string) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

// Nop returns a logger that discards all events.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

// WithField returns a child logger carrying an extra string field.
func (l *Logger) WithField(key, value string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zlog: l.zlog.With().Str(key, value).Logger()}
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.logger().Debug()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.logger().Info()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.logger().Warn()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.logger().Error()
}

func (l *Logger) logger() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zlog
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
