package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/pkg/openshop"
	"github.com/Rastion/openshop-problem/pkg/taillard"
)

// InstancesHandler serves the instance catalog endpoints from a base
// directory of Taillard files.
type InstancesHandler struct {
	loader *openshop.Loader
}

// NewInstancesHandler creates a handler rooted at baseDir.
func NewInstancesHandler(baseDir string) *InstancesHandler {
	return &InstancesHandler{
		loader: openshop.NewLoader(openshop.LoaderConfig{BaseDir: baseDir}),
	}
}

// Loader exposes the underlying loader for the evaluate and solutions
// handlers.
func (h *InstancesHandler) Loader() *openshop.Loader {
	return h.loader
}

// InstanceSummary is one entry in the instance listing.
type InstanceSummary struct {
	Key      string `json:"key"`
	Jobs     int    `json:"jobs"`
	Machines int    `json:"machines"`
	Size     int64  `json:"size"`
}

// InstanceListResponse is the body of GET /instances.
type InstanceListResponse struct {
	Instances []InstanceSummary `json:"instances"`
	Count     int               `json:"count"`
}

// InstanceDetail is the body of GET /instances/{key}.
type InstanceDetail struct {
	Key             string  `json:"key"`
	Jobs            int     `json:"jobs"`
	Machines        int     `json:"machines"`
	MaxStart        int     `json:"max_start"`
	ProcessingTimes [][]int `json:"processing_times"`
}

// List serves GET /instances: every parseable Taillard file under the
// base dir, with dimensions read from the header only.
func (h *InstancesHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries := []InstanceSummary{}

	root := h.loader.BaseDir()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		dims, err := peekFileDims(path)
		if err != nil {
			// Unparseable files are listed elsewhere by the catalog
			// scanner; the API listing skips them.
			return nil
		}

		key, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		summaries = append(summaries, InstanceSummary{
			Key:      filepath.ToSlash(key),
			Jobs:     dims.Jobs,
			Machines: dims.Machines,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		observability.ServerLogger.Error("instance listing failed",
			zap.String("base_dir", root), zap.Error(err))
		respondWithError(w, r, apperrors.New(apperrors.CodeInternal, "failed to list instances"))
		return
	}

	if t := observability.TelemetrySystem; t != nil {
		t.CatalogKeysScanned.Add(float64(len(summaries)))
	}

	writeJSON(w, InstanceListResponse{Instances: summaries, Count: len(summaries)})
}

// Get serves GET /instances/{key...}: the full processing-time matrix.
func (h *InstancesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondWithError(w, r, apperrors.New(apperrors.CodeBadRequest, "instance key is required"))
		return
	}

	inst, err := h.loadInstance(w, r, key)
	if err != nil {
		return
	}

	writeJSON(w, InstanceDetail{
		Key:             key,
		Jobs:            inst.Jobs(),
		Machines:        inst.Machines(),
		MaxStart:        inst.MaxStart(),
		ProcessingTimes: inst.ProcessingTimes(),
	})
}

// loadInstance resolves and parses key, writing the error response
// itself on failure.
func (h *InstancesHandler) loadInstance(w http.ResponseWriter, r *http.Request, key string) (*openshop.Instance, error) {
	inst, err := h.loader.Load(key)
	if err == nil {
		return inst, nil
	}
	respondLoadError(w, r, key, err)
	return nil, err
}

// peekFileDims reads just the instance header for dimensions.
func peekFileDims(path string) (taillard.Dims, error) {
	f, err := os.Open(path)
	if err != nil {
		return taillard.Dims{}, err
	}
	defer func() { _ = f.Close() }()
	return taillard.PeekDims(io.LimitReader(f, 4096))
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func isParseError(err error) bool {
	return errors.Is(err, taillard.ErrShortInput) ||
		errors.Is(err, taillard.ErrShortLine) ||
		errors.Is(err, taillard.ErrBadToken) ||
		errors.Is(err, taillard.ErrBadDims) ||
		errors.Is(err, taillard.ErrMachineIndex)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		observability.ServerLogger.Error("failed to encode response", zap.Error(err))
	}
}
