// Package logx is the console logger used by the driver, the worker pool and
// the CLI. It is a leveled key/value logger on top of pterm; a nil *Logger is
// valid and discards everything.
package logx

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Level orders log verbosity; lower is chattier.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	}
	return "unknown"
}

// ParseLevel converts a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "off":
		return LevelOff, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %q (expected: trace|debug|info|warn|error|off)", s)
}

// FromVerbosity maps -q / -v / -vv style switches to a level.
func FromVerbosity(verbose int, quiet bool) Level {
	switch {
	case quiet:
		return LevelWarn
	case verbose >= 2:
		return LevelTrace
	case verbose == 1:
		return LevelDebug
	}
	return LevelInfo
}

func (l Level) pterm() pterm.LogLevel {
	switch l {
	case LevelTrace:
		return pterm.LogLevelTrace
	case LevelDebug:
		return pterm.LogLevelDebug
	case LevelInfo:
		return pterm.LogLevelInfo
	case LevelWarn:
		return pterm.LogLevelWarn
	case LevelError:
		return pterm.LogLevelError
	}
	return pterm.LogLevelDisabled
}

// Options configures a Logger.
type Options struct {
	Level Level
	JSON  bool // NDJSON records instead of colored lines
	Time  bool // prefix records with a timestamp
}

// Logger writes leveled records with key/value arguments.
type Logger struct {
	l     *pterm.Logger
	level Level
}

// New builds a Logger writing to w.
func New(w io.Writer, opts Options) *Logger {
	pl := pterm.DefaultLogger.WithWriter(w).WithLevel(opts.Level.pterm()).WithTime(opts.Time || opts.JSON)
	if opts.JSON {
		pl = pl.WithFormatter(pterm.LogFormatterJSON)
	}
	return &Logger{l: pl, level: opts.Level}
}

// Enabled reports whether records at lvl are written.
func (lg *Logger) Enabled(lvl Level) bool {
	return lg != nil && lvl >= lg.level && lg.level != LevelOff
}

func (lg *Logger) Trace(msg string, kv ...any) {
	if lg.Enabled(LevelTrace) {
		lg.l.Trace(msg, lg.l.Args(kv...))
	}
}

func (lg *Logger) Debug(msg string, kv ...any) {
	if lg.Enabled(LevelDebug) {
		lg.l.Debug(msg, lg.l.Args(kv...))
	}
}

func (lg *Logger) Info(msg string, kv ...any) {
	if lg.Enabled(LevelInfo) {
		lg.l.Info(msg, lg.l.Args(kv...))
	}
}

func (lg *Logger) Warn(msg string, kv ...any) {
	if lg.Enabled(LevelWarn) {
		lg.l.Warn(msg, lg.l.Args(kv...))
	}
}

func (lg *Logger) Error(msg string, kv ...any) {
	if lg.Enabled(LevelError) {
		lg.l.Error(msg, lg.l.Args(kv...))
	}
}
