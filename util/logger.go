// Package util provides low-level helpers shared by the endpoint,
// pump, and CLI layers.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls diagnostic verbosity.  Each repetition of the -v
// flag raises the level by one.
type LogLevel int

const (
	LogQuiet   LogLevel = 0 // errors only
	LogNormal  LogLevel = 1 // warnings, run summary
	LogVerbose LogLevel = 2 // endpoint lifecycle, fan-out counts
	LogDebug   LogLevel = 3 // frame-level noise
)

// Logger writes levelled diagnostics to stderr.  It never carries the
// trace facets: trace lines are the product surface, written by the
// decorators to their own io.Writer (stdout by default), so redirecting
// one stream never garbles the other.
type Logger struct {
	level      LogLevel
	output     io.Writer
	mu         sync.Mutex
	timestamps bool
}

// NewLogger returns a Logger gated at the given verbosity, normally
// the -v flag count.  Debug verbosity turns timestamps on.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= int(LogDebug),
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.output = w }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Error always prints, even when the run is quiet.  Prefixed [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("ERR", format, args...)
}

// Warn prints at LogNormal and above.  Prefixed [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.emit("WRN", format, args...)
	}
}

// Info prints at LogNormal and above.  Prefixed [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.emit("INF", format, args...)
	}
}

// Verbose prints at LogVerbose and above.  Prefixed [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.emit("VRB", format, args...)
	}
}

// Debug prints at LogDebug.  Prefixed [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.emit("DBG", format, args...)
	}
}

func (l *Logger) emit(tag, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s\n", tag, fmt.Sprintf(format, args...))
	if l.timestamps {
		line = time.Now().Format("15:04:05.000") + " " + line
	}
	io.WriteString(l.output, line)
}
