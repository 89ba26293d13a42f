package app

import (
	"errors"
	"fmt"
)

// Code is the status carried by callable errors.
type Code string

const (
	CodeInvalidArgument   Code = "invalid-argument"
	CodeUnauthenticated   Code = "unauthenticated"
	CodePermissionDenied  Code = "permission-denied"
	CodeNotFound          Code = "not-found"
	CodeResourceExhausted Code = "resource-exhausted"
	CodeInternal          Code = "internal"
	CodeUnknown           Code = "unknown"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPromptEmpty      = errors.New("prompt must not be empty")
	ErrSubmissionBusy   = errors.New("a submission is already in flight for this input")
	ErrGeneration       = errors.New("generation failed")
	ErrPersistence      = errors.New("failed to save the message")
	ErrLoginRequired    = errors.New("login required to send messages")
	ErrAdminOnly        = errors.New("only the administrator can do this")
	ErrTurnNotFound     = errors.New("chat turn not found")
	ErrResetUnconfirmed = errors.New("reset confirmation is missing, expired or not yours")
)

// Error is a classified failure returned across the invocation surface.
// Details carries the original diagnostic message when there is one.
type Error struct {
	Code    Code
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code Code, cause error, details string) *Error {
	return &Error{Code: code, Message: cause.Error(), Details: details, cause: cause}
}

func InvalidArgument(cause error) *Error {
	return newError(CodeInvalidArgument, cause, "")
}

func Internal(cause error, details string) *Error {
	return newError(CodeInternal, cause, details)
}

// AsError classifies any error. Unclassified errors become unknown and keep
// their message as details.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{
		Code:    CodeUnknown,
		Message: "failed to process the message",
		Details: err.Error(),
		cause:   err,
	}
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
