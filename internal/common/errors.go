package common

import (
	"errors"
	"net/http"
)

// Machine readable error codes shared across the pricing API surface.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeNotEligible         = "NOT_ELIGIBLE"
	CodeAlreadyApplied      = "ALREADY_APPLIED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
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

// WithDetails attaches a structured detail payload to the error.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// Invalid wraps err as an INVALID_INPUT AppError.
func Invalid(message string, err error) *AppError {
	return NewAppError(CodeInvalidInput, message, http.StatusBadRequest, err)
}

// NotFound wraps err as a NOT_FOUND AppError.
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// NotEligible wraps err as a NOT_ELIGIBLE AppError. The reason travels in
// Details so clients can render actionable guidance ("add $X more").
func NotEligible(message string, err error, details any) *AppError {
	e := NewAppError(CodeNotEligible, message, http.StatusUnprocessableEntity, err)
	e.Details = details
	return e
}

// Upstream wraps err as an UPSTREAM_UNAVAILABLE AppError.
func Upstream(message string, err error) *AppError {
	return NewAppError(CodeUpstreamUnavailable, message, http.StatusBadGateway, err)
}
