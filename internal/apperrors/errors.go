// Package apperrors defines the error taxonomy shared across the
// coordinator: configuration failures, communicator failures, business
// refusals and protocol errors (spec.md §7).
package apperrors

import (
	"errors"
	"fmt"
)

// AppError is a business-facing error.
//
// Code classifies the error for API clients (not an HTTP status code).
// Message is safe to return to a caller. Err is the wrapped internal
// cause and is never serialized.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with no wrapped cause.
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap hides an internal error behind a business-facing message.
func Wrap(err error, message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// Error code bands, mirroring the 4xxxx (client) / 5xxxx (server)
// convention used across the coordinator.
const (
	ErrCodeInternal       = 50000
	ErrCodeConfiguration  = 50001
	ErrCodeJournalError   = 50002
	ErrCodeCommunication  = 50100 // generic CommError surfaced past the communicator
	ErrCodeCommUnknownPpt = 50101
	ErrCodeCommConnect    = 50102
	ErrCodeCommTimeout    = 50103
	ErrCodeCommBadStatus  = 50104
	ErrCodeCommDecode     = 50105
	ErrCodeCommRetries    = 50106

	ErrCodeBusinessRefusal = 40000 // 2xx + ok=false from a participant
	ErrCodeSagaNotFound    = 40400
	ErrCodeInvalidParams   = 40900
	ErrCodeBindError       = 40901
)

var (
	ErrInternal      = New(ErrCodeInternal, "internal error")
	ErrSagaNotFound  = New(ErrCodeSagaNotFound, "saga not found")
	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid request parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request body")
)

// IsAppError reports whether err (or a wrapped cause) is an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts the *AppError from err, wrapping unknown errors
// as an internal error so callers never have to type-switch.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal error")
}
