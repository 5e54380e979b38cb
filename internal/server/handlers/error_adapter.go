// Package handlers implements the HTTP API endpoints: health probes,
// version info, instance browsing, evaluation, and solution generation.
package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/server/middleware"
)

// HTTPErrorResponder writes an error response for a handler failure.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// httpErrorResponder is the active responder. Tests may swap it to
// observe error paths without parsing envelopes.
var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

// SetHTTPErrorResponder overrides the error responder. Passing nil
// restores the default.
func SetHTTPErrorResponder(fn HTTPErrorResponder) {
	if fn == nil {
		fn = defaultErrorResponder
	}
	httpErrorResponder = fn
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeInternal
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}

	middleware.WriteError(w, r, code, message, statusForCode(code), nil)
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeBadRequest:
		return http.StatusBadRequest
	case apperrors.CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case apperrors.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
