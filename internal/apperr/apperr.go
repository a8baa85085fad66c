// Package apperr classifies the recoverable failure modes of the ledger so
// handlers can map them to transport codes without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind partitions expected, caller-recoverable failures from internal ones.
type Kind int

const (
	// Internal is the fallback for unexpected failures (persistence,
	// programming defects). Logged in full, surfaced generically.
	Internal Kind = iota
	NotFound
	Forbidden
	Conflict
	InvalidInput
	InsufficientFunds
	// ExternalService covers gateway rejections, unreachable providers and
	// timeouts; the upstream detail is preserved in the message.
	ExternalService
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	case InsufficientFunds:
		return "insufficient_funds"
	case ExternalService:
		return "external_service"
	default:
		return "internal"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, keeping it in the chain.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the classification of err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
