// Package bongoerr defines the error taxonomy shared by the executor,
// the storage engine and the wire server.
package bongoerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the wire protocol.
type Kind uint8

const (
	// Parse: malformed SQL or unsupported construct.
	Parse Kind = iota + 1
	// Schema: unknown table/column, duplicate CREATE, mismatched INSERT list.
	Schema
	// Type: value/column mismatch, varchar overflow, bad operator operands.
	Type
	// Io: disk failure during FLUSH or load.
	Io
	// Internal: invariant violation, reported as a generic failure.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse error"
	case Schema:
		return "schema error"
	case Type:
		return "type error"
	case Io:
		return "io error"
	case Internal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Error carries a kind plus a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Parsef(format string, args ...any) *Error  { return newf(Parse, format, args...) }
func Schemaf(format string, args ...any) *Error { return newf(Schema, format, args...) }
func Typef(format string, args ...any) *Error   { return newf(Type, format, args...) }
func Internalf(format string, args ...any) *Error {
	return newf(Internal, format, args...)
}

// IoWrap tags err as an io failure, keeping it unwrappable.
func IoWrap(msg string, err error) *Error {
	return &Error{Kind: Io, Msg: msg, err: err}
}

// KindOf reports the kind of err, or Internal when err carries no kind.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return Internal
}

// Wire codes of the response envelope.
const (
	CodeOK          = 0
	CodeInvalidStmt = 1
	CodeExecFailed  = 2
)

// WireCode maps err to the "successful" field of a response.
func WireCode(err error) int {
	if err == nil {
		return CodeOK
	}
	if KindOf(err) == Parse {
		return CodeInvalidStmt
	}
	return CodeExecFailed
}
