// Package apperr carries machine-readable error codes across the analysis
// service and its transports.
//
// Transports map codes to status: input problems are 400, everything else
// is 500.
//
//	err := apperr.New(apperr.CodeInvalidInput, "top must be >= 0 (got %d)", n)
//	if apperr.Is(err, apperr.CodeInvalidInput) {
//	    // reject the request
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidFilter    Code = "INVALID_FILTER"
	CodeInvalidFormat    Code = "INVALID_FORMAT"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	switch GetCode(err) {
	case CodeInvalidInput, CodeInvalidFilter, CodeInvalidFormat, CodeValidationFailed:
		return true
	}
	return false
}
