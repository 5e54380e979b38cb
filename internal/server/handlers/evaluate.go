package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
)

// maxBodyBytes bounds request bodies; order matrices for even very
// large benchmark instances fit well under this.
const maxBodyBytes = 8 << 20

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	// Instance is the instance path, relative to the configured base dir.
	Instance string `json:"instance"`

	// Solution is the candidate to score. Shape problems degrade to the
	// penalty objective rather than failing the request.
	Solution *openshop.Solution `json:"solution"`
}

// EvaluateResponse is the body of a successful evaluation.
type EvaluateResponse struct {
	Instance  string `json:"instance"`
	Objective int    `json:"objective"`
	Penalized bool   `json:"penalized"`
	Reason    string `json:"reason,omitempty"`
}

// EvaluateHandler scores candidate solutions against instances.
type EvaluateHandler struct {
	loader *openshop.Loader
}

// NewEvaluateHandler creates a handler using the given loader.
func NewEvaluateHandler(loader *openshop.Loader) *EvaluateHandler {
	return &EvaluateHandler{loader: loader}
}

// ServeHTTP handles POST /evaluate.
func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
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

	objective := inst.Evaluate(req.Solution)
	penalized := objective == openshop.PenaltyObjective && !hasRealPenaltyObjective(req.Solution)

	resp := EvaluateResponse{
		Instance:  req.Instance,
		Objective: objective,
		Penalized: penalized,
	}
	if penalized {
		resp.Reason = penaltyReason(req.Solution)
	}

	if t := observability.TelemetrySystem; t != nil {
		verdict := "objective"
		if penalized {
			verdict = "penalty"
		}
		t.EvaluationsTotal.WithLabelValues(verdict).Inc()
	}

	writeJSON(w, resp)
}

// hasRealPenaltyObjective distinguishes a solution whose external
// objective genuinely equals the penalty constant from a malformed one.
func hasRealPenaltyObjective(sol *openshop.Solution) bool {
	return sol != nil && sol.JobsOrder != nil && sol.MachinesOrder != nil &&
		sol.Objective != nil && *sol.Objective == openshop.PenaltyObjective
}

func penaltyReason(sol *openshop.Solution) string {
	switch {
	case sol == nil:
		return "solution is missing"
	case sol.JobsOrder == nil:
		return "jobs_order is missing"
	case sol.MachinesOrder == nil:
		return "machines_order is missing"
	case sol.Objective == nil:
		return "objective has not been computed"
	default:
		return ""
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, r, apperrors.New(apperrors.CodeBadRequest, "failed to read request body"))
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondWithError(w, r, apperrors.New(apperrors.CodeBadRequest, "invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

func respondLoadError(w http.ResponseWriter, r *http.Request, key string, err error) {
	switch {
	case isNotExist(err):
		respondWithError(w, r, apperrors.New(apperrors.CodeNotFound, "instance not found: "+key))
	case isParseError(err):
		respondWithError(w, r, apperrors.New(apperrors.CodeBadRequest, "instance is not valid Taillard data: "+err.Error()))
	default:
		observability.ServerLogger.Error("instance load failed",
			zap.String("key", key), zap.Error(err))
		respondWithError(w, r, apperrors.New(apperrors.CodeInternal, "failed to load instance"))
	}
}
