// Package errors provides the application error types shared by the CLI
// and the HTTP server.
package errors

import (
	"context"
	"fmt"
)

// Error codes used in HTTP envelopes and CLI diagnostics.
const (
	CodeInternal           = "INTERNAL_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
)

// AppError is an error with a machine-readable code.
type AppError struct {
	// Code is a stable machine-readable error code.
	Code string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given code and message.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewExternalServiceError creates an error for an unreachable collaborator.
func NewExternalServiceError(message string) *AppError {
	return &AppError{Code: CodeExternalService, Message: message}
}

// WrapInternal wraps an unexpected failure as an internal error.
// The context is accepted for future correlation-id capture.
func WrapInternal(_ context.Context, err error, message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// HTTPErrorResponse is the JSON envelope for all HTTP error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorBody `json:"error"`
}

// HTTPErrorBody is the payload inside the error envelope.
type HTTPErrorBody struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// RequestID correlates the response with server logs.
	RequestID string `json:"request_id,omitempty"`

	// Details carries optional structured context.
	Details map[string]any `json:"details,omitempty"`
}

// NewHTTPError builds an envelope with the given code and message.
func NewHTTPError(code, message string) *HTTPErrorResponse {
	return &HTTPErrorResponse{Error: HTTPErrorBody{Code: code, Message: message}}
}
