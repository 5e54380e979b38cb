package handlers

import (
	"math/rand"
	"net/http"
	"time"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
)

// SolutionsRequest is the body of POST /solutions.
type SolutionsRequest struct {
	// Instance is the instance path, relative to the configured base dir.
	Instance string `json:"instance"`

	// Seed makes generation reproducible. Nil draws a time-based seed.
	Seed *int64 `json:"seed,omitempty"`
}

// SolutionsResponse is the body of a successful generation.
type SolutionsResponse struct {
	Instance string             `json:"instance"`
	Seed     int64              `json:"seed"`
	Solution *openshop.Solution `json:"solution"`
}

// SolutionsHandler generates random candidate solutions.
type SolutionsHandler struct {
	loader *openshop.Loader
}

// NewSolutionsHandler creates a handler using the given loader.
func NewSolutionsHandler(loader *openshop.Loader) *SolutionsHandler {
	return &SolutionsHandler{loader: loader}
}

// ServeHTTP handles POST /solutions.
func (h *SolutionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SolutionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Instance == "" {
		respondWithError(w, r, apperrors.New(apperrors.CodeBadRequest, "instance is required"))
		return
	}

	inst, err := h.loader.Load(req.Instance)
	if err != nil {
		respondLoadError(w, r, req.Instance, err)
		return
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	sol := inst.RandomSolution(rand.New(rand.NewSource(seed)))

	if t := observability.TelemetrySystem; t != nil {
		t.SolutionsGenerated.Inc()
	}

	writeJSON(w, SolutionsResponse{
		Instance: req.Instance,
		Seed:     seed,
		Solution: sol,
	})
}
