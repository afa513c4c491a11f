package models

import "errors"

// Error kinds. Every error returned by the catalog wraps exactly one of these,
// so callers can branch with errors.Is without inspecting messages.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidData     = errors.New("invalid data")
	ErrDuplicate       = errors.New("duplicate")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrIO              = errors.New("i/o failure")
	ErrFormat          = errors.New("bad format")
)

// KindError is a named error that belongs to one of the kinds above.
type KindError struct {
	msg  string
	kind error
}

// NewKindError returns an error with message msg that unwraps to kind.
func NewKindError(msg string, kind error) *KindError {
	return &KindError{msg: msg, kind: kind}
}

func (e *KindError) Error() string { return e.msg }

func (e *KindError) Unwrap() error { return e.kind }

// Kind returns the first kind sentinel found in err's chain, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidArgument, ErrInvalidData, ErrDuplicate, ErrNotFound, ErrConflict, ErrIO, ErrFormat} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
