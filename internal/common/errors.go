package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrAnalysisInProgress = errors.New("already exists an analysis in progress for this project")
	ErrNotCompleted       = errors.New("analysis not completed")
	ErrNotProcessing      = errors.New("analysis is not processing")
	ErrFileBusy           = errors.New("file is already being processed")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrNotImplemented     = errors.New("not implemented")
	ErrRecognition        = errors.New("recognition failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsUserError reports whether err is caused by the caller rather than the system.
func IsUserError(err error) bool {
	return errors.Is(err, ErrAnalysisInProgress) ||
		errors.Is(err, ErrNotCompleted) ||
		errors.Is(err, ErrNotProcessing) ||
		errors.Is(err, ErrFileBusy) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnsupportedFormat)
}

// ErrorCode returns the AppError code when err carries one, otherwise a code
// derived from the sentinel it wraps.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAnalysisInProgress):
		return "ANALYSIS_IN_PROGRESS"
	case errors.Is(err, ErrNotCompleted):
		return "NOT_COMPLETED"
	case errors.Is(err, ErrNotProcessing):
		return "NOT_PROCESSING"
	case errors.Is(err, ErrFileBusy):
		return "FILE_BUSY"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrNotImplemented):
		return "NOT_IMPLEMENTED"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}
