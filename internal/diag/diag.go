// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag provides the error and logging plumbing shared by every stage
// of the differencing pipeline: a typed error carrying the exit-code kind and
// call-site provenance the reference tool's diagnostics require, and a
// verbosity value threaded explicitly through each stage rather than read
// from a mutable global.
package diag

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
)

// Level is an explicit verbosity value passed to each pipeline stage. The
// reference C implementation reads a single global loglevel from anywhere in
// the program; this is the fix called for in the design notes: the logger is
// a regular value threaded through constructors, not a package global poked
// by every call site.
type Level uint8

const (
	Normal Level = iota
	Debug
)

// Kind classifies a diagnostic error by the exit code it should produce.
type Kind uint8

const (
	// KindInternal covers malformed input and violated invariants: reader
	// errors, dangling cross-references, missing mandatory sections.
	KindInternal Kind = iota
	// KindUnsupportedShape covers input whose shape this tool doesn't
	// support (program headers present, a defining symbol at a non-zero
	// section offset outside the permitted exception).
	KindUnsupportedShape
	// KindUnreconcilable covers a semantic difference between base and
	// patched that can't be expressed as a minimized diff (mismatched
	// section headers, incompatible symbol info between twins).
	KindUnreconcilable
	// KindResource covers open/allocate/create failures.
	KindResource
)

// ExitCode maps a Kind to the process exit code from the external-interface
// contract: 0 success, 1 internal/invariant error, 2 unreconcilable semantic
// difference.
func (k Kind) ExitCode() int {
	switch k {
	case KindUnreconcilable:
		return 2
	default:
		return 1
	}
}

// Error is a diagnostic error carrying its Kind and the function:line of the
// call site that raised it.
type Error struct {
	Kind    Kind
	Msg     string
	Where   string // "function:line"
	wrapped error
}

func (e *Error) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("%s: %s", e.Where, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds a diagnostic error of the given kind, capturing the caller's
// location.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Where: caller(2)}
}

// Wrap builds a diagnostic error around an underlying error, capturing the
// caller's location.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Where: caller(2), wrapped: err}
}

func caller(skip int) string {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d", name, line)
}

// Logger prints diagnostics at a given verbosity, colorizing status words the
// same way the corpus's terminal tooling does.
type Logger struct {
	Level Level

	changed  *color.Color
	warn     *color.Color
	errColor *color.Color
	plain    *color.Color
}

// NewLogger returns a Logger at the given verbosity. Color is controlled
// globally via color.NoColor (set by the CLI from --no-color/NO_COLOR/TTY
// detection).
func NewLogger(level Level) *Logger {
	return &Logger{
		Level:    level,
		changed:  color.New(color.FgGreen),
		warn:     color.New(color.FgYellow),
		errColor: color.New(color.FgRed, color.Bold),
		plain:    color.New(color.Reset),
	}
}

// Debugf prints a debug-level message if the logger's level is Debug.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.Level < Debug {
		return
	}
	l.plain.Printf(format+"\n", args...)
}

// Changedf announces an entity that changed status.
func (l *Logger) Changedf(format string, args ...any) {
	if l == nil {
		return
	}
	l.changed.Printf(format+"\n", args...)
}

// Warnf prints a warning.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Printf(format+"\n", args...)
}

// Errorf prints an error diagnostic.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.errColor.Printf(format+"\n", args...)
}
