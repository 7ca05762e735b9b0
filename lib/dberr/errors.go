package dberr

import (
	"context"
	"fmt"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type Code uint64

const (
	CodeUnknown             Code = iota // 0: Unclassified error.
	CodeInvalidResponse                 // 1: A mandatory response body was absent.
	CodeResponseParsing                 // 2: The response body was not valid JSON.
	CodeCacheInconsistency              // 3: Not-modified sub-response without a cache entry.
	CodeRequestAborted                  // 4: The outer call was cancelled or aborted.
	CodeRetryLimitExceeded              // 5: Lazy operations kept asking for a retry.
	CodeSubRequestFailed                // 6: A sub-request returned an error status.
	CodeInvalidArgument                 // 7: The caller misused an API.
	CodeTransport                       // 8: The outer call failed on the wire.
)

// String returns the name of the code
func (c Code) String() string {
	switch c {
	case CodeInvalidResponse:
		return "InvalidResponse"
	case CodeResponseParsing:
		return "ResponseParsing"
	case CodeCacheInconsistency:
		return "CacheInconsistency"
	case CodeRequestAborted:
		return "RequestAborted"
	case CodeRetryLimitExceeded:
		return "RetryLimitExceeded"
	case CodeSubRequestFailed:
		return "SubRequestFailed"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeTransport:
		return "Transport"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a Code, a message and optionally the cause and the raw response
// content that was read before the failure.
type Error struct {
	Code Code   // The error code
	Msg  string // The error message
	Body string // Raw response content collected so far (diagnostics only)
	Err  error  // The underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("dDoc error (code %s): %s", e.Code, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same code.
// Sentinels are errors of this type with an empty message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Code == e.Code
}

// --------------------------------------------------------------------------
// Sentinels (use with errors.Is)
// --------------------------------------------------------------------------

var (
	ErrInvalidResponse    = &Error{Code: CodeInvalidResponse}
	ErrResponseParsing    = &Error{Code: CodeResponseParsing}
	ErrCacheInconsistency = &Error{Code: CodeCacheInconsistency}
	ErrRequestAborted     = &Error{Code: CodeRequestAborted}
	ErrRetryLimitExceeded = &Error{Code: CodeRetryLimitExceeded}
	ErrSubRequestFailed   = &Error{Code: CodeSubRequestFailed}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
	ErrTransport          = &Error{Code: CodeTransport}
)

// --------------------------------------------------------------------------
// Factory Functions
// --------------------------------------------------------------------------

// New creates a new Error with the given code and message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error with the given code that wraps err.
// The cause keeps its stack trace (see cockroachdb/errors).
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
		Err:  errors.WithStack(err),
	}
}

// NewParsingError creates a ResponseParsing error carrying the raw content read so far.
func NewParsingError(err error, body string) *Error {
	return &Error{
		Code: CodeResponseParsing,
		Msg:  "unable to parse response body",
		Body: body,
		Err:  errors.WithStack(err),
	}
}

// CodeOf returns the code of the first *Error in the chain of err,
// or CodeUnknown if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsAbort reports whether err stems from a cancelled or expired context.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
