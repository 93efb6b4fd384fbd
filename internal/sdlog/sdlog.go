// Package sdlog is a thin, one-line-per-event logging seam used for the
// engine's recoverable-but-notable events: fsck activity and error-hook
// firings. It wraps the standard library's [log] package rather than a
// third-party structured logger, matching the teacher's own plain-log
// idiom for operator-facing output (see repair.go's messages).
package sdlog

import (
	"io"
	"log"
	"os"
)

// Logger emits one-line, prefixed messages. The zero value is not usable;
// construct one with [New] or use [Discard] in tests that don't care about
// log output.
type Logger struct {
	l *log.Logger
}

// New creates a Logger that writes to stderr with an "sdstorage: " prefix.
func New() *Logger {
	return &Logger{l: log.New(os.Stderr, "sdstorage: ", log.LstdFlags)}
}

// Discard returns a Logger whose output is thrown away, for tests.
func Discard() *Logger {
	return &Logger{l: log.New(io.Discard, "", 0)}
}

// Infof logs a one-line informational message.
func (lg *Logger) Infof(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}

	lg.l.Printf(format, args...)
}

// Errorf logs a one-line error message.
func (lg *Logger) Errorf(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}

	lg.l.Printf("ERROR: "+format, args...)
}
