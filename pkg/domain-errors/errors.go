// Package domainerrors provides coded errors for careflow's domain layer.
//
// Services return these so transports can translate them into consistent
// HTTP responses without inspecting error strings. For infrastructure facts
// (not found, expired, unavailable) stores return pkg/platform/sentinel
// errors and services wrap them into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeUnauthorized      Code = "unauthorized"
	CodeIdentityMismatch  Code = "identity_mismatch"
	CodeNoEnrollment      Code = "no_enrollment"
	CodeSampleInvalid     Code = "sample_invalid"
	CodeInvalidTransition Code = "invalid_transition"
	CodeStageUnavailable  Code = "stage_unavailable"
	CodeDuplicateDispatch Code = "duplicate_dispatch"
	CodeInvalidInput      Code = "invalid_input"
	CodeNotFound          Code = "not_found"
	CodeInternal          Code = "internal_error"
)

// Error is a coded domain error with an operator-facing description.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a description.
func New(code Code, description string) error {
	return &Error{Code: code, Description: description}
}

// Newf creates a coded error with a formatted description.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error that preserves the underlying cause for
// errors.Is / errors.As chains.
func Wrap(code Code, description string, cause error) error {
	return &Error{Code: code, Description: description, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized, CodeIdentityMismatch:
		return http.StatusUnauthorized
	case CodeNoEnrollment, CodeNotFound:
		return http.StatusNotFound
	case CodeSampleInvalid, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeDuplicateDispatch:
		return http.StatusConflict
	case CodeStageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
