package errors

import (
	"fmt"
)

// ErrorCode represents a standardized, machine-readable error code. The
// string values of the security codes are stable API: callers branch on them.
type ErrorCode string

const (
	// Transport and parsing errors
	ErrCodeTransportFailure  ErrorCode = "http_failure"
	ErrCodeMalformedResponse ErrorCode = "invalid_response"
	ErrCodeCacheFault        ErrorCode = "cache_fault"

	// Security validation errors. These are fatal to the current flow and
	// must never be retried or defaulted.
	ErrCodeInvalidState         ErrorCode = "invalid_state"
	ErrCodeInvalidNonce         ErrorCode = "invalid_nonce"
	ErrCodeInvalidCorrelationID ErrorCode = "invalid_correlation_id"

	// Token validation errors
	ErrCodeTokenMissing       ErrorCode = "token_missing"
	ErrCodeTokenExpired       ErrorCode = "token_expired"
	ErrCodeTokenInvalid       ErrorCode = "token_invalid"
	ErrCodeNoMatchingKey      ErrorCode = "no_matching_key"
	ErrCodeInvalidSignature   ErrorCode = "invalid_signature"
	ErrCodeAccessTokenMissing ErrorCode = "access_token_missing"
	ErrCodeAccessTokenExpired ErrorCode = "access_token_expired"

	// Negotiation and capability errors
	ErrCodeUnsupportedVersion ErrorCode = "unsupported_version"
	ErrCodeNotSupported       ErrorCode = "not_supported"

	// Session cache errors
	ErrCodeSDKSessionNotFound ErrorCode = "sdksession_not_found"
	ErrCodeCacheDisabled      ErrorCode = "cache_disabled"

	// Argument and flow misuse
	ErrCodeRequiredArgMissing ErrorCode = "required_arg_missing"
	ErrCodeUnknown            ErrorCode = "unknown_error"
)

// MobileConnectError is a structured error carrying a stable code,
// a human-readable message and optional context.
type MobileConnectError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *MobileConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *MobileConnectError) Unwrap() error {
	return e.Cause
}

// WithDetails adds additional context to the error.
func (e *MobileConnectError) WithDetails(key string, value interface{}) *MobileConnectError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new MobileConnectError with the given code and message.
func New(code ErrorCode, message string) *MobileConnectError {
	return &MobileConnectError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new MobileConnectError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *MobileConnectError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *MobileConnectError {
	return &MobileConnectError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *MobileConnectError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the error code from an error, returning
// ErrCodeUnknown for foreign error types.
func GetErrorCode(err error) ErrorCode {
	if mcErr, ok := err.(*MobileConnectError); ok {
		return mcErr.Code
	}
	return ErrCodeUnknown
}

// IsSecurityFailure reports whether the error is one of the security
// validation failures that must abort the current flow.
func IsSecurityFailure(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidState, ErrCodeInvalidNonce, ErrCodeInvalidCorrelationID:
		return true
	}
	return false
}

// Common constructors.

// NewTransportFailure creates a transport failure error.
func NewTransportFailure(err error, message string) *MobileConnectError {
	return Wrap(err, ErrCodeTransportFailure, message)
}

// NewMalformedResponse creates a malformed response error.
func NewMalformedResponse(err error, message string) *MobileConnectError {
	return Wrap(err, ErrCodeMalformedResponse, message)
}

// NewInvalidState creates an invalid state (CSRF check) error.
func NewInvalidState(message string) *MobileConnectError {
	return New(ErrCodeInvalidState, message)
}

// NewInvalidNonce creates an invalid nonce (replay check) error.
func NewInvalidNonce(message string) *MobileConnectError {
	return New(ErrCodeInvalidNonce, message)
}

// NewInvalidCorrelationID creates a correlation id mismatch error.
func NewInvalidCorrelationID(message string) *MobileConnectError {
	return New(ErrCodeInvalidCorrelationID, message)
}

// NewUnsupportedVersion creates a version negotiation error.
func NewUnsupportedVersion(message string) *MobileConnectError {
	return New(ErrCodeUnsupportedVersion, message)
}

// NewNotSupported creates a provider capability error.
func NewNotSupported(message string) *MobileConnectError {
	return New(ErrCodeNotSupported, message)
}

// NewRequiredArgMissing creates an argument validation error.
func NewRequiredArgMissing(arg string) *MobileConnectError {
	return Newf(ErrCodeRequiredArgMissing, "required argument %q was missing or empty", arg)
}
