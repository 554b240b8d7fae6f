package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtrack/devtrack-server/internal/apperror"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"reconnect", apperror.ReconnectRequired(errors.New("401")), http.StatusConflict, "github_reconnect_required"},
		{"not connected", apperror.NotConnected(), http.StatusBadRequest, "github_not_connected"},
		{"validation", apperror.ValidationFailed("email", "bad"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", apperror.Unauthorized("Not authenticated"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("user", "x"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "x"), http.StatusConflict, "conflict"},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("user", "x")), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("sql: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errorType, _ := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, errorType)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, errors.New("sqlite: disk I/O error at /var/lib/devtrack.db"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sqlite")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "An internal error occurred", body.Message)
}

func TestWriteError_LogsThroughHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	writeError(httptest.NewRecorder(), logger, errors.New("sqlite: database is locked"))
	assert.Contains(t, buf.String(), "database is locked")

	buf.Reset()
	writeAIError(httptest.NewRecorder(), logger, apperror.NotConnected())
	assert.Empty(t, buf.String(), "client errors are not logged")

	writeAIError(httptest.NewRecorder(), logger, errors.New("llm: connection reset"))
	assert.Contains(t, buf.String(), "ai request failed")
}

func TestWriteError_Reconnect(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, nil, apperror.ReconnectRequired(errors.New("bad credentials")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t,
		`{"error":"github_reconnect_required","message":"GitHub token expired. Please reconnect.","needsReconnect":true}`,
		rec.Body.String())
}

func TestWriteAIError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAIError(rec, nil, apperror.NotConnected())

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "github_not_connected", body["error"])
	assert.NotContains(t, body, "needsReconnect")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Message string `json:"message"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "hi", dst.Message)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":`))
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	big := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	err = decodeJSON(httptest.NewRecorder(), r, &dst)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
