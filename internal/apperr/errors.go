// Package apperr defines the typed error kinds shared across the service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-checkable error category.
type Kind string

// Kinds raised while authorizing a request.
const (
	KindInvalidHeaders         Kind = "invalid_headers"
	KindMalformedToken         Kind = "malformed_token"
	KindInvalidToken           Kind = "invalid_token"
	KindKeySetRetrievalFailure Kind = "jwks_retrieval_failure"
)

// Kinds raised by the configuration and secrets collaborators.
const (
	KindSerializationFailure  Kind = "serialization_failure"
	KindSecretsManagerFailure Kind = "secrets_manager_failure"
	KindRequestFailure        Kind = "request_failure"
	KindTimedOut              Kind = "timed_out"
	KindCompressionFailure    Kind = "compression_failure"
	KindNotFound              Kind = "not_found"
	KindConfigurationFailure  Kind = "configuration_failure"
)

// Sentinels for errors.Is comparisons. Any *Error with the same kind matches.
var (
	ErrInvalidHeaders         = &Error{Kind: KindInvalidHeaders}
	ErrMalformedToken         = &Error{Kind: KindMalformedToken}
	ErrInvalidToken           = &Error{Kind: KindInvalidToken}
	ErrKeySetRetrievalFailure = &Error{Kind: KindKeySetRetrievalFailure}
	ErrSerializationFailure   = &Error{Kind: KindSerializationFailure}
	ErrSecretsManagerFailure  = &Error{Kind: KindSecretsManagerFailure}
	ErrRequestFailure         = &Error{Kind: KindRequestFailure}
	ErrTimedOut               = &Error{Kind: KindTimedOut}
	ErrCompressionFailure     = &Error{Kind: KindCompressionFailure}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrConfigurationFailure   = &Error{Kind: KindConfigurationFailure}
)

// Error carries a kind, a log-friendly message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
