package module

import (
	"emperror.dev/errors"
)

// Error kinds returned by the service. Match them with errors.Is; the message
// of the returned error carries the detail.
var (
	ErrValidation = errors.NewPlain("validation error")
	ErrNotFound   = errors.NewPlain("not found")
	ErrPermission = errors.NewPlain("permission denied")
	ErrConflict   = errors.NewPlain("conflict")
)

// Error is a service error of a known kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func errValidation(msg string) error { return newError(ErrValidation, msg) }
func errNotFound(msg string) error   { return newError(ErrNotFound, msg) }
func errPermission(msg string) error { return newError(ErrPermission, msg) }
func errConflict(msg string) error   { return newError(ErrConflict, msg) }
