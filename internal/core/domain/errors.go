// Package domain defines the core domain models for the RegDesk client.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a client error with a structured error code.
// Codes follow the format RD-{AREA}-{NNNN}.
type DomainError struct {
	Code    string // Error code (e.g., "RD-SESS-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionAbsent indicates no token is stored.
	ErrSessionAbsent = NewDomainError("RD-SESS-4010", "no active session")

	// ErrSessionInvalid indicates the backend rejected the stored token.
	ErrSessionInvalid = NewDomainError("RD-SESS-4011", "session expired or invalid")

	// ErrSessionUnverified indicates the token could not be validated
	// (network failure, unexpected response, storage failure).
	ErrSessionUnverified = NewDomainError("RD-SESS-4012", "session could not be verified")

	// ErrTokenEmpty indicates an attempt to store an empty token.
	ErrTokenEmpty = NewDomainError("RD-SESS-4001", "token must not be empty")

	// ErrSubjectAbsent indicates no subject is stored alongside the token.
	ErrSubjectAbsent = NewDomainError("RD-SESS-4040", "session subject not found")

	// ErrLoginFailed indicates the backend refused the credentials.
	ErrLoginFailed = NewDomainError("RD-SESS-4013", "login failed")
)

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrResponseMalformed indicates a 2xx response whose body is not JSON.
	ErrResponseMalformed = NewDomainError("RD-REQ-5020", "malformed response body")

	// ErrRequestEncode indicates the request body could not be encoded.
	ErrRequestEncode = NewDomainError("RD-REQ-4000", "request body encoding failed")
)

// ============================================================================
// Check Errors (CHK)
// ============================================================================

var (
	// ErrCheckerClosed indicates the checker was closed.
	ErrCheckerClosed = NewDomainError("RD-CHK-4100", "checker closed")
)

// ============================================================================
// Storage / Config Errors (SYS, CFG)
// ============================================================================

var (
	// ErrStorageError indicates a session store failure.
	ErrStorageError = NewDomainError("RD-SYS-5001", "storage error")

	// ErrInternal indicates an unexpected client-side failure.
	ErrInternal = NewDomainError("RD-SYS-5000", "internal error")

	// ErrInvalidConfig indicates an invalid configuration value.
	ErrInvalidConfig = NewDomainError("RD-CFG-1001", "invalid configuration")

	// ErrInvalidArgument indicates an invalid command argument.
	ErrInvalidArgument = NewDomainError("RD-ARG-1001", "invalid argument")
)
