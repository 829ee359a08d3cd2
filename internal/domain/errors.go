package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is one of the error taxonomy entries a caller can switch on
// with errors.Is.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindPersistence     ErrorKind = "persistence"
	KindRemoteService   ErrorKind = "remote_service"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindConfig          ErrorKind = "config"
)

// sentinels for errors.Is comparisons against a bare kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrRemoteService      = &Error{Kind: KindRemoteService}
	ErrDimensionMismatch  = &Error{Kind: KindDimensionMismatch}
	ErrConfig             = &Error{Kind: KindConfig}
)

// Error is the wrapped error type used throughout the pipeline. It
// carries an ErrorKind so handlers at the edge (HTTP) can map it to a
// status code without reaching into internal packages.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Wrap builds an *Error of the given kind, recording op for debugging.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error of the given kind from a format string.
func Newf(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the ErrorKind carried by err, if any, and whether one
// was found.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
