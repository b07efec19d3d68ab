package types

import (
	"errors"
	"fmt"
)

// Kind classifies every error the ledger hands back across the library
// boundary. Callers branch on Kind, never on driver error strings.
type Kind int

const (
	KindValidation Kind = iota + 1 // bad input, rejected before storage is touched
	KindNotFound                   // work/task/user absent
	KindConflict                   // duplicate work/task, already-approved race, owner already set
	KindTransient                  // busy/lock timeout after retries, safe to retry the operation
	KindFatal                      // schema/init failure, halts startup
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error is the only error type returned by the services and database packages.
type Error struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Op, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Op, e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two *Error values on Kind, so callers can write
// errors.Is(err, &types.Error{Kind: types.KindConflict}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a typed error with no underlying cause.
func E(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a typed classification to an underlying storage error.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
func IsTransient(err error) bool  { return IsKind(err, KindTransient) }
func IsFatal(err error) bool      { return IsKind(err, KindFatal) }
