// Package rasterr defines the small error taxonomy shared by every
// rastaforge package: configuration errors, resource exhaustion, and
// programmer-error invariant violations. Mirrors the flat sentinel-error
// style of the teacher's parser packages (fmt.Errorf + errors.Is), never
// a bespoke error-code enum.
package rasterr

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced through rastaforge.New (configuration) and
// Optimizer.Stop/Wait (a worker's failure). Collaborators render
// these to the user; the core never logs and exits on its own.
var (
	// ErrConfigInvalid means the configuration bag failed validation
	// (missing target, malformed on/off map, L<1, cache budget below floor).
	ErrConfigInvalid = errors.New("rastaforge: invalid configuration")

	// ErrResourceExhausted means the arena watermark stayed above budget
	// even after a full mass clear and re-intern pass. No rastaforge code
	// path returns it: the worker's cache-pressure policy keeps running
	// after a mass clear whatever the watermark.
	ErrResourceExhausted = errors.New("rastaforge: arena budget exhausted after mass clear")

	// ErrInvariantViolation marks a programmer error: a mutation produced
	// an over-budget line, an out-of-range sprite bit, or a nil sequence
	// identity was observed at evaluation time. Fail-fast; never recovered.
	ErrInvariantViolation = errors.New("rastaforge: invariant violation")

	// ErrCacheTransient is never returned to a caller. It exists so
	// internal code can use the standard error-return idiom for the
	// dual-frame pointer-flip race described in spec.md §7, even though
	// the caller always falls back instead of propagating it.
	ErrCacheTransient = errors.New("rastaforge: transient cache inconsistency")
)

// Invariant wraps ErrInvariantViolation with a diagnostic, matching the
// teacher's fmt.Errorf("...: %w", ...) wrapping convention.
func Invariant(format string, args ...any) error {
	return wrap(ErrInvariantViolation, format, args...)
}

// Config wraps ErrConfigInvalid with a diagnostic.
func Config(format string, args ...any) error {
	return wrap(ErrConfigInvalid, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return &wrapped{sentinel: sentinel, msg: fmt.Sprintf(format, args...)}
}

type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.sentinel }
