// Package store defines the error taxonomy shared by every query module.
//
// Errors carry a closed Kind so callers can branch on them without
// string matching:
//
//	if errors.Is(err, store.ErrNullData) {
//	    // translate to "not found"
//	}
package store

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error discriminant.
type Kind string

const (
	// KindNullData means an operation that must yield exactly one row yielded none.
	KindNullData Kind = "NULL_DATA"
	// KindEmptyInput means a bulk operation received no identifiers.
	KindEmptyInput Kind = "EMPTY_INPUT"
	// KindConnection means the store connection could not be established.
	KindConnection Kind = "CONNECTION"
)

// Sentinels for errors.Is. They compare by Kind only.
var (
	ErrNullData   = &Error{Kind: KindNullData}
	ErrEmptyInput = &Error{Kind: KindEmptyInput}
	ErrConnection = &Error{Kind: KindConnection}
)

// Error is a store error of a known Kind.
type Error struct {
	Kind    Kind   // discriminant
	Op      string // operation that failed, e.g. "users.get_by_id"
	Message string // human readable context
	Err     error  // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a store error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NullData builds a KindNullData error.
func NullData(op, format string, args ...any) error {
	return &Error{Kind: KindNullData, Op: op, Message: fmt.Sprintf(format, args...)}
}

// EmptyInput builds a KindEmptyInput error.
func EmptyInput(op string) error {
	return &Error{Kind: KindEmptyInput, Op: op, Message: "operation requires at least one input value"}
}

// Connection builds a KindConnection error wrapping cause.
func Connection(op string, cause error) error {
	return &Error{Kind: KindConnection, Op: op, Err: cause}
}

// KindOf returns the Kind of err, or "" if err is not a store error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
