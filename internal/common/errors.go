package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Canonical application error codes.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeNoPricingBand = "NO_PRICING_BAND"
	CodeValidation    = "VALIDATION"
	CodeConflict      = "CONFLICT"
	CodeConfiguration = "CONFIGURATION"
	CodeInternal      = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NotFound builds a 404 error for an unknown entity.
func NotFound(entity string, err error) *AppError {
	return NewAppError(CodeNotFound, entity+" not found", http.StatusNotFound, err)
}

// Validation builds a 400 error carrying field-level details.
func Validation(message string, details any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// Conflict builds a 409 error.
func Conflict(message string, err error) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict, err)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *AppError {
	return NewAppError(CodeInternal, message, http.StatusInternalServerError, err)
}

// NoPricingBand builds the 422 error raised when a quantity falls outside
// every band of a selected rate card. The details carry enough context for
// the estimator to fix the input.
func NoPricingBand(cardCode string, quantity int, err error) *AppError {
	return &AppError{
		Code:       CodeNoPricingBand,
		Message:    fmt.Sprintf("no pricing band for rate card %s at quantity %d", cardCode, quantity),
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
		Details:    map[string]any{"rateCardCode": cardCode, "quantity": quantity},
	}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
