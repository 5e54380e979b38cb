package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
)

func TestSetHTTPErrorResponder(t *testing.T) {
	original := httpErrorResponder
	defer func() { httpErrorResponder = original }()

	t.Run("sets custom responder", func(t *testing.T) {
		called := false
		customResponder := func(w http.ResponseWriter, r *http.Request, err error) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		}

		SetHTTPErrorResponder(customResponder)

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()
		respondWithError(rec, req, assert.AnError)

		assert.True(t, called)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("nil resets to default", func(t *testing.T) {
		SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
			w.WriteHeader(http.StatusTeapot)
		})

		SetHTTPErrorResponder(nil)

		assert.NotNil(t, httpErrorResponder)
	})
}

func TestResetHTTPErrorResponder(t *testing.T) {
	original := httpErrorResponder
	defer func() { httpErrorResponder = original }()

	customCalled := false
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		customCalled = true
	})

	ResetHTTPErrorResponder()

	assert.False(t, customCalled)
	assert.NotNil(t, httpErrorResponder)
}

func TestRespondWithError(t *testing.T) {
	original := httpErrorResponder
	defer func() { httpErrorResponder = original }()

	called := false
	var capturedErr error

	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		called = true
		capturedErr = err
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	respondWithError(rec, req, assert.AnError)

	assert.True(t, called)
	assert.Equal(t, assert.AnError, capturedErr)
}

func TestDefaultErrorResponder(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "app error maps code to status",
			err:        apperrors.New(apperrors.CodeNotFound, "instance not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
		},
		{
			name:       "bad request",
			err:        apperrors.New(apperrors.CodeBadRequest, "invalid body"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeBadRequest,
		},
		{
			name:       "external service maps to bad gateway",
			err:        apperrors.NewExternalServiceError("scheduler unreachable"),
			wantStatus: http.StatusBadGateway,
			wantCode:   apperrors.CodeExternalService,
		},
		{
			name:       "plain error falls back to internal",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			rec := httptest.NewRecorder()

			defaultErrorResponder(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp apperrors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
