// Package apperr defines the typed errors returned by the image operations
// and their mapping onto JSON-RPC error codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorises an error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindProcessing Kind = "processing"
	KindInternal   Kind = "internal"
)

// JSON-RPC error codes used by the server.
const (
	CodeInvalidParams = -32602
	CodeToolFailure   = -32000
)

// Error is a categorised application error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports a bad parameter.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing sample, file or label.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Processing wraps a failure that happened while running an algorithm.
func Processing(message string, cause error) *Error {
	return &Error{Kind: KindProcessing, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// RPCCode maps an error to a JSON-RPC error code.
func RPCCode(err error) int {
	if IsKind(err, KindValidation) {
		return CodeInvalidParams
	}
	return CodeToolFailure
}
