// Package clierr gives every pipeline stage (lexer, parser, symbol lookup,
// file I/O) a typed error kind, and recovers the panics the recursive-descent
// compiler and translator raise on first bad input, turning them into a
// normal error return at the CLI boundary.
//
// The recovery half is adapted from jcorbin/gothird's internal/panicerr
// package, narrowed to the four error kinds this toolchain actually raises
// instead of a generic recovered-panic wrapper.
package clierr

import (
	"fmt"
	"runtime/debug"
)

// Kind classifies a fatal error raised anywhere in the pipeline.
type Kind string

const (
	Lex    Kind = "LexError"
	Parse  Kind = "ParseError"
	Symbol Kind = "SymbolError"
	IO     Kind = "IoError"
)

// Error is a fatal, unrecovered condition tagged with its Kind. There is at
// most one of these per invocation — none of the stages this toolchain
// implements attempt error recovery.
type Error struct {
	Kind    Kind
	Message string
	stack   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Stack returns the captured panic stack trace, if this Error was built by
// Recover from a panic rather than constructed directly. Empty otherwise.
func (e *Error) Stack() string {
	return string(e.stack)
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Fail panics with a typed Error. The compiler raises its own parse and
// symbol errors through this instead of a bare panic, so Recover returns
// them with their Kind intact.
func Fail(kind Kind, format string, args ...interface{}) {
	panic(New(kind, format, args...))
}

// Recover runs f and converts any panic into a non-nil *Error return. A
// panic with a value that is already *Error is passed through unchanged
// (preserving its Kind); any other panic is reported as a ParseError, since
// every stage in this toolchain panics only on malformed input.
func Recover(f func()) (err *Error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(*Error); ok {
			err = e
			return
		}
		err = &Error{
			Kind:    Parse,
			Message: fmt.Sprint(r),
			stack:   debug.Stack(),
		}
	}()
	f()
	return nil
}
