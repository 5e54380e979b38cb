package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Rastion/openshop-problem/internal/observability"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionInfo = VersionInfo{Version: "dev"}

// SetVersionInfo records build metadata injected at link time.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	}
}

// VersionHandler serves build metadata.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(versionInfo); err != nil {
		observability.ServerLogger.Error("failed to encode version response", zap.Error(err))
	}
}
