// Package errors provides structured error types for the cloud SDK.
// The CLI layer maps these to exit codes and user-facing messages.
package errors

import (
	"errors"
	"fmt"
)

// Error is a structured error for cloud operations.
type Error struct {
	Code       string // Error code (e.g., "not_found", "not_authorized")
	Message    string // Error message
	HTTPStatus int    // HTTP status code if applicable
	Cause      error  // Underlying error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	CodeUsage            = "usage"
	CodeAccessTokenEmpty = "access_token_empty" // never authenticated
	CodeNotAuthorized    = "not_authorized"     // expired or invalid token
	CodeNotFound         = "not_found"
	CodeSourceURL        = "source_url" // upload response carried no usable permalink
	CodeNetwork          = "network"
	CodeIO               = "io"
	CodeAPI              = "api_error"
)

// Exit codes.
const (
	ExitOK       = 0 // Success
	ExitUsage    = 1 // Invalid arguments or flags
	ExitNotFound = 2 // Resource not found
	ExitAuth     = 3 // Not authenticated or token rejected
	ExitNetwork  = 4 // Connection/DNS/timeout error
	ExitIO       = 5 // Local file or credential store failure
	ExitAPI      = 6 // Server returned error
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeAccessTokenEmpty, CodeNotAuthorized:
		return ExitAuth
	case CodeNetwork:
		return ExitNetwork
	case CodeIO:
		return ExitIO
	default:
		return ExitAPI
	}
}

// CodeOf returns the error code of err, or CodeAPI when err carries none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeAPI
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNotAuthorized reports whether err means the access token was rejected.
func IsNotAuthorized(err error) bool {
	return Is(err, CodeNotAuthorized)
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

// Error constructors.

// ErrUsage creates a usage error.
func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

// ErrAccessTokenEmpty indicates a request was attempted without ever
// having authenticated.
func ErrAccessTokenEmpty() *Error {
	return &Error{
		Code:    CodeAccessTokenEmpty,
		Message: "access token is empty",
	}
}

// ErrNotAuthorized indicates the service rejected the access token.
func ErrNotAuthorized() *Error {
	return &Error{
		Code:       CodeNotAuthorized,
		Message:    "user is not authorized",
		HTTPStatus: 401,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: 404,
	}
}

// ErrSourceURL indicates an upload succeeded at the transport level but the
// response carried no valid permalink.
func ErrSourceURL() *Error {
	return &Error{
		Code:    CodeSourceURL,
		Message: "could not receive source url from upload response",
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(cause error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Message: "network error",
		Cause:   cause,
	}
}

// ErrIO creates a local I/O error.
func ErrIO(cause error) *Error {
	return &Error{
		Code:    CodeIO,
		Message: "i/o error",
		Cause:   cause,
	}
}

// ErrAPI creates an API error.
func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}
