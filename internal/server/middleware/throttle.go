package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
)

// Throttle rejects requests beyond the given rate with 503 responses.
//
// A zero or negative requestsPerSecond disables throttling.
func Throttle(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				WriteError(w, r, apperrors.CodeServiceUnavailable,
					"request rate limit exceeded",
					http.StatusServiceUnavailable, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
