package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Rastion/openshop-problem/internal/observability"
)

// Metrics records request counts and latency per chi route pattern.
//
// No-op when telemetry has not been initialized, so the middleware can
// stay in the chain regardless of the metrics.enabled setting.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := observability.TelemetrySystem
		if t == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		t.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		t.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
