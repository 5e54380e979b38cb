package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/internal/server/middleware"
)

// checkTimeout bounds each individual health check.
const checkTimeout = 2 * time.Second

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the JSON body returned by health endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthManager runs registered checkers and serves the health endpoints.
type HealthManager struct {
	mu       sync.RWMutex
	version  string
	checkers map[string]HealthChecker
}

// NewHealthManager creates a manager reporting the given version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a named dependency check.
func (m *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// runChecks executes every registered checker with a per-check timeout.
func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	checkers := make(map[string]HealthChecker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	results := make(map[string]string, len(checkers))
	for name, checker := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checker.CheckHealth(checkCtx)
		cancel()

		switch {
		case err == nil:
			results[name] = "healthy"
		case errors.Is(err, context.DeadlineExceeded):
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

// determineOverallStatus aggregates check results. Any unhealthy check
// makes the whole service unhealthy; timeouts alone degrade it.
func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, s := range checks {
		switch s {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler serves the full health report, returning 503 when any
// dependency is unhealthy.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		details := map[string]any{
			"status": status,
			"checks": checks,
		}
		middleware.WriteError(w, r, apperrors.CodeServiceUnavailable,
			"one or more dependencies are unhealthy",
			http.StatusServiceUnavailable, details)
		return
	}

	m.writeHealth(w, status, checks)
}

// LivenessHandler reports process liveness without running checks.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	m.writeHealth(w, "healthy", nil)
}

// ReadinessHandler reports readiness to serve traffic.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		middleware.WriteError(w, r, apperrors.CodeServiceUnavailable,
			"service not ready",
			http.StatusServiceUnavailable, map[string]any{"checks": checks})
		return
	}

	m.writeHealth(w, status, checks)
}

// StartupHandler reports startup completion. The manager existing means
// initialization finished.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.writeHealth(w, "healthy", nil)
}

func (m *HealthManager) writeHealth(w http.ResponseWriter, status string, checks map[string]string) {
	resp := HealthResponse{
		Status:    status,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		observability.ServerLogger.Error("failed to encode health response", zap.Error(err))
	}
}

// globalHealthManager backs the package-level handler functions used by
// the router.
var globalHealthManager *HealthManager

// InitHealthManager initializes the global health manager.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the global manager, or nil before init.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func withGlobalManager(w http.ResponseWriter, r *http.Request, fn func(m *HealthManager, w http.ResponseWriter, r *http.Request)) {
	if globalHealthManager == nil {
		middleware.WriteError(w, r, apperrors.CodeServiceUnavailable,
			"health manager not initialized",
			http.StatusServiceUnavailable, nil)
		return
	}
	fn(globalHealthManager, w, r)
}

// HealthHandler serves /health via the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).HealthHandler)
}

// LivenessHandler serves /health/live via the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).LivenessHandler)
}

// ReadinessHandler serves /health/ready via the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).ReadinessHandler)
}

// StartupHandler serves /health/startup via the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).StartupHandler)
}
