package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodePersistence   ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeTransport     ErrorCode = "TRANSPORT_ERROR"
)

// ErrTransportUnavailable is wrapped by transport errors raised before any
// connection attempt because the mail settings are incomplete.
var ErrTransportUnavailable = errors.New("mail transport not configured")

// AppError represents an application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a client-correctable error for bad form input
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Persistence wraps a Record Store failure
func Persistence(message string, err error) *AppError {
	return Wrap(ErrCodePersistence, message, err)
}

// Transport wraps a mail transport failure
func Transport(message string, err error) *AppError {
	return Wrap(ErrCodeTransport, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsTransport checks if error is a transport failure
func IsTransport(err error) bool {
	return CodeOf(err) == ErrCodeTransport
}
