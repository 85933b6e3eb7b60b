package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure so the exposing layer can map it
// to a protocol status without parsing messages.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindFetchFailure           ErrorKind = "fetch_failure"
	KindUnsupportedContentType ErrorKind = "unsupported_content_type"
	KindParseFailure           ErrorKind = "parse_failure"
	KindEmbeddingFailure       ErrorKind = "embedding_failure"
	KindDimensionMismatch      ErrorKind = "dimension_mismatch"
	KindStorageFailure         ErrorKind = "storage_failure"
	KindNotFound               ErrorKind = "not_found"
)

// Error carries an error kind, a human-readable message, and, for extraction
// failures, the upstream HTTP status when one is available.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int // Upstream HTTP status, 0 when not applicable
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a typed error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying error with a kind and message, preserving the
// chain for errors.Is/As.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind from an error chain.
// Returns the empty kind for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
