package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
)

// ErrorResponse is the JSON envelope written for all error responses.
type ErrorResponse = apperrors.HTTPErrorResponse

// Recovery converts panics into INTERNAL_ERROR responses.
//
// The panic value and stack are logged; the response carries the request
// ID so operators can correlate the two.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := GetRequestID(r.Context())
				observability.ServerLogger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)

				WriteError(w, r, apperrors.CodeInternal,
					fmt.Sprintf("panic: %v", rec),
					http.StatusInternalServerError, nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery, kept for middleware chains that
// name the outermost error boundary explicitly.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

// WriteError writes a JSON error envelope with the request ID filled in
// from the request context.
func WriteError(w http.ResponseWriter, r *http.Request, code, message string, status int, details map[string]any) {
	resp := apperrors.NewHTTPError(code, message)
	resp.Error.RequestID = GetRequestID(r.Context())
	resp.Error.Details = details
	writeErrorResponse(w, resp, status)
}

func writeErrorResponse(w http.ResponseWriter, resp *apperrors.HTTPErrorResponse, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		observability.ServerLogger.Error("failed to encode error response", zap.Error(err))
	}
}
