package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/command"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/query"
	appsync "github.com/aqyl-hub/aqyl-learning-hub/internal/application/sync"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewSessionStore()
	cat := catalog.Default()
	engine, err := achievement.NewEngine(achievement.BuiltinContent{})
	require.NoError(t, err)
	logger := slog.Default()

	synchronizer := appsync.NewSynchronizer(store, nil, appsync.DefaultSyncConfig())
	t.Cleanup(synchronizer.Close)

	return NewServer(DefaultConfig(), Dependencies{
		AuthenticateHandler:  command.NewAuthenticateHandler(store, cat, nil, nil, logger),
		StartWorldHandler:    command.NewStartWorldHandler(store, nil, logger),
		CompleteWorldHandler: command.NewCompleteWorldHandler(store, cat, engine, nil, logger),
		ReplayWorldHandler:   command.NewReplayWorldHandler(store, nil, logger),
		GetProgressHandler:   query.NewGetProgressHandler(store, cat, engine),
		Synchronizer:         synchronizer,
		Logger:               logger,
	})
}

func doJSON(t *testing.T, server *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func authenticateSession(t *testing.T, server *Server, code string) string {
	t.Helper()
	rec, body := doJSON(t, server, http.MethodPost, "/api/v1/sessions/authenticate", map[string]any{
		"access_code": code,
		"tenant_id":   "school-taraz-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return body["session_id"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	rec, body := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = doJSON(t, server, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// No checkers configured means ready.
	rec, body = doJSON(t, server, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ready"])
}

func TestAuthenticateEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec, body := doJSON(t, server, http.MethodPost, "/api/v1/sessions/authenticate", map[string]any{
		"access_code": "taraz-code-1",
		"tenant_id":   "school-taraz-1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["new_session"])

	// Same code resumes with 200.
	rec, body = doJSON(t, server, http.MethodPost, "/api/v1/sessions/authenticate", map[string]any{
		"access_code": "taraz-code-1",
		"tenant_id":   "school-taraz-1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["new_session"])

	// Unusable code is unauthorized.
	rec, _ = doJSON(t, server, http.MethodPost, "/api/v1/sessions/authenticate", map[string]any{
		"access_code": "x",
		"tenant_id":   "school-taraz-1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Broken body is a bad request.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/authenticate", bytes.NewReader([]byte("{")))
	rec2 := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestProgressionEndpoints(t *testing.T) {
	server := newTestServer(t)
	id := authenticateSession(t, server, "taraz-code-2")

	// Start world 1.
	rec, body := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/1/start", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", body["status"])

	// Locked world conflicts.
	rec, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/4/start", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "world_locked", body["error"])

	// Complete world 1.
	rec, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/1/complete", id), map[string]any{
		"score":                 140,
		"completion_percentage": 100,
		"time_spent_ms":         30000,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(140), body["retained_score"])
	assert.ElementsMatch(t, []any{float64(2), float64(3)}, body["newly_available"])

	// Replay keeps the best score.
	rec, body = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/1/replay", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(140), body["retained_score"])

	// Progress snapshot reflects everything.
	rec, body = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/progress?locale=en", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(140), body["total_score"])

	// Invalid world index.
	rec, _ = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/abc/start", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Negative score rejected.
	rec, _ = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/worlds/2/complete", id), map[string]any{
		"score": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressUnknownSession(t *testing.T) {
	server := newTestServer(t)

	rec, _ := doJSON(t, server, http.MethodGet, "/api/v1/sessions/3b1c0f9e-8a6d-4f2b-9c1e-0d5a7b3f6e21/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpoints(t *testing.T) {
	server := newTestServer(t)
	id := authenticateSession(t, server, "taraz-code-3")

	// Snapshot before attach is not found.
	rec, _ := doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/sync", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/sync", id), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Attaching twice is reported as already attached, not an error.
	rec, _ = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/sync", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/sync", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["id"])

	rec, _ = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/v1/sessions/%s/sync", id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-me-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "trace-me-123", rec.Header().Get("X-Request-ID"))
}
