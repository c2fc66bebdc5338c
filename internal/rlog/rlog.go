// Package rlog is a thin prefixed-logger wrapper. The teacher logs
// directly with log.Printf (see audio_chip.go's invalid-register-address
// warning); rastaforge adds only a component prefix so worker, cache, and
// dual-frame log lines are easy to grep apart in a multi-threaded run.
package rlog

import (
	"log"
	"os"
)

// Logger prefixes every line with a component tag.
type Logger struct {
	tag  string
	std  *log.Logger
	quiet bool
}

// New returns a Logger tagged with component, writing to stderr.
func New(component string) *Logger {
	return &Logger{
		tag: "[" + component + "] ",
		std: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetQuiet suppresses Infof output; Warnf/Errorf still print. Used by the
// CLI's -quiet flag.
func (l *Logger) SetQuiet(q bool) { l.quiet = q }

func (l *Logger) Infof(format string, args ...any) {
	if l.quiet {
		return
	}
	l.std.Printf(l.tag+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.std.Printf(l.tag+"warning: "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf(l.tag+"error: "+format, args...)
}
