package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
)

const testInstance = `instance 2x2
2 2
processing times :
3 5
4 2
machines :
2 1
1 2
`

// newInstanceDir writes Taillard fixtures into a temp base dir.
func newInstanceDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// serveInstances routes a request through a chi router so wildcard URL
// params resolve the way they do in the real server.
func serveInstances(h *InstancesHandler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/instances", h.List)
	r.Get("/instances/*", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInstancesList(t *testing.T) {
	dir := newInstanceDir(t, map[string]string{
		"tai4_4/instance0.txt": testInstance,
		"small.txt":            testInstance,
		"notes.md":             "not an instance",
	})
	h := NewInstancesHandler(dir)

	rec := serveInstances(h, httptest.NewRequest(http.MethodGet, "/instances", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp InstanceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	keys := make(map[string]InstanceSummary, len(resp.Instances))
	for _, s := range resp.Instances {
		keys[s.Key] = s
	}
	assert.Contains(t, keys, "small.txt")
	assert.Contains(t, keys, "tai4_4/instance0.txt")
	assert.Equal(t, 2, keys["small.txt"].Jobs)
	assert.Equal(t, 2, keys["small.txt"].Machines)
}

func TestInstancesList_MissingBaseDir(t *testing.T) {
	h := NewInstancesHandler(filepath.Join(t.TempDir(), "missing"))

	rec := serveInstances(h, httptest.NewRequest(http.MethodGet, "/instances", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp InstanceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestInstancesGet(t *testing.T) {
	dir := newInstanceDir(t, map[string]string{
		"tai4_4/instance0.txt": testInstance,
	})
	h := NewInstancesHandler(dir)

	rec := serveInstances(h, httptest.NewRequest(http.MethodGet, "/instances/tai4_4/instance0.txt", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp InstanceDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tai4_4/instance0.txt", resp.Key)
	assert.Equal(t, 2, resp.Jobs)
	assert.Equal(t, 2, resp.Machines)
	assert.Equal(t, 14, resp.MaxStart)
	// The machine assignment matrix is 1-indexed: job 0 runs on machines
	// (2,1), so duration 3 lands on machine 1 and 5 on machine 0.
	assert.Equal(t, [][]int{{5, 3}, {4, 2}}, resp.ProcessingTimes)
}

func TestInstancesGet_NotFound(t *testing.T) {
	h := NewInstancesHandler(newInstanceDir(t, nil))

	rec := serveInstances(h, httptest.NewRequest(http.MethodGet, "/instances/missing.txt", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeNotFound, resp.Error.Code)
}

func TestInstancesGet_Unparseable(t *testing.T) {
	dir := newInstanceDir(t, map[string]string{
		"broken.txt": "instance\n2 2\n",
	})
	h := NewInstancesHandler(dir)

	rec := serveInstances(h, httptest.NewRequest(http.MethodGet, "/instances/broken.txt", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.CodeBadRequest, resp.Error.Code)
}
