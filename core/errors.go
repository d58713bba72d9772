package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies errors raised while locating and resolving objects.
type ErrorKind int

const (
	KindStructural ErrorKind = iota // malformed xref/trailer syntax
	KindLocation                    // startxref missing or invalid
	KindReference                   // object not found or mismatched
	KindRecursion                   // circular resolution
	KindEncryption                  // password or decryption failure
	KindHeader                      // missing %PDF- header
	KindEmptyFile                   // zero-length input
)

// Sentinels for use with errors.Is. Every *Error unwraps to the sentinel of
// its kind.
var (
	ErrStructural = errors.New("structural error")
	ErrLocation   = errors.New("location error")
	ErrReference  = errors.New("reference error")
	ErrRecursion  = errors.New("recursion error")
	ErrEncryption = errors.New("encryption error")
	ErrHeader     = errors.New("header error")
	ErrEmptyFile  = errors.New("empty file")
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindLocation:
		return "location"
	case KindReference:
		return "reference"
	case KindRecursion:
		return "recursion"
	case KindEncryption:
		return "encryption"
	case KindHeader:
		return "header"
	case KindEmptyFile:
		return "empty file"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindStructural:
		return ErrStructural
	case KindLocation:
		return ErrLocation
	case KindReference:
		return ErrReference
	case KindRecursion:
		return ErrRecursion
	case KindEncryption:
		return ErrEncryption
	case KindHeader:
		return ErrHeader
	case KindEmptyFile:
		return ErrEmptyFile
	default:
		return nil
	}
}

// Error is the structured error returned by the xref engine and resolver.
// Offset is -1 when the error is not tied to a byte position.
type Error struct {
	Kind   ErrorKind
	Offset int64
	Msg    string
	Err    error
}

// Error returns Msg, followed by the wrapped cause if there is one.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind sentinel and the wrapped cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// newError builds an *Error with a formatted message and no offset.
func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// errorAt builds an *Error tied to a byte offset.
func errorAt(kind ErrorKind, offset int64, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// NewError returns an *Error of the given kind. It is used by packages
// layered on core so that callers see one error taxonomy.
func NewError(kind ErrorKind, offset int64, cause error, msg string) *Error {
	return &Error{Kind: kind, Offset: offset, Msg: msg, Err: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
