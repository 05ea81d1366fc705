package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/command"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/query"
	appsync "github.com/aqyl-hub/aqyl-learning-hub/internal/application/sync"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(startedAt).String(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true

	for name, checker := range map[string]HealthChecker{
		"store": s.deps.StoreChecker,
		"cache": s.deps.CacheChecker,
	} {
		if checker == nil {
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type authenticateRequest struct {
	AccessCode      string `json:"access_code"`
	TenantID        string `json:"tenant_id"`
	CulturalContext string `json:"cultural_context,omitempty"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	result, err := s.deps.AuthenticateHandler.Handle(r.Context(), command.AuthenticateCommand{
		AccessCode:      req.AccessCode,
		TenantID:        req.TenantID,
		CulturalContext: req.CulturalContext,
		CorrelationID:   requestID(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.IsNewSession {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"session_id":  result.Session.ID.String(),
		"new_session": result.IsNewSession,
		"version":     result.Session.Version,
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{
		SessionID: r.PathValue("id"),
		Locale:    r.URL.Query().Get("locale"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// WORLD PROGRESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleStartWorld(w http.ResponseWriter, r *http.Request) {
	index, ok := worldIndex(w, r)
	if !ok {
		return
	}

	result, err := s.deps.StartWorldHandler.Handle(r.Context(), command.StartWorldCommand{
		SessionID:     r.PathValue("id"),
		WorldIndex:    index,
		CorrelationID: requestID(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"world_index": result.WorldIndex.Int(),
		"status":      string(result.Status),
		"version":     result.Session.Version,
	})
}

type completeWorldRequest struct {
	Score                int      `json:"score"`
	CompletionPercentage int      `json:"completion_percentage"`
	TimeSpentMs          int64    `json:"time_spent_ms"`
	Achievements         []string `json:"achievements,omitempty"`
	Competencies         []string `json:"competencies,omitempty"`
}

func (s *Server) handleCompleteWorld(w http.ResponseWriter, r *http.Request) {
	index, ok := worldIndex(w, r)
	if !ok {
		return
	}

	var req completeWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	result, err := s.deps.CompleteWorldHandler.Handle(r.Context(), command.CompleteWorldCommand{
		SessionID:            r.PathValue("id"),
		WorldIndex:           index,
		Score:                req.Score,
		CompletionPercentage: req.CompletionPercentage,
		TimeSpentMs:          req.TimeSpentMs,
		Achievements:         req.Achievements,
		Competencies:         req.Competencies,
		CorrelationID:        requestID(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	newlyAvailable := make([]int, 0, len(result.Outcome.NewlyAvailable))
	for _, idx := range result.Outcome.NewlyAvailable {
		newlyAvailable = append(newlyAvailable, idx.Int())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"world_index":      result.Outcome.WorldIndex.Int(),
		"submitted_score":  result.Outcome.SubmittedScore,
		"retained_score":   result.Outcome.RetainedScore,
		"newly_available":  newlyAvailable,
		"new_achievements": result.NewAchievements,
		"total_score":      result.Outcome.Progress.TotalScore,
		"version":          result.Session.Version,
	})
}

func (s *Server) handleReplayWorld(w http.ResponseWriter, r *http.Request) {
	index, ok := worldIndex(w, r)
	if !ok {
		return
	}

	result, err := s.deps.ReplayWorldHandler.Handle(r.Context(), command.ReplayWorldCommand{
		SessionID:     r.PathValue("id"),
		WorldIndex:    index,
		CorrelationID: requestID(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"world_index":    result.WorldIndex.Int(),
		"retained_score": result.RetainedScore,
		"version":        result.Session.Version,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC VIEW HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	id, err := shared.NewSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	// The refresh loop must outlive this request, so it is scoped to the
	// server's lifetime rather than the request context.
	if err := s.deps.Synchronizer.Attach(context.WithoutCancel(r.Context()), id, nil); err != nil {
		if errors.Is(err, appsync.ErrAlreadyAttached) {
			writeJSON(w, http.StatusOK, map[string]any{"attached": true})
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"attached": true})
}

func (s *Server) handleDetach(w http.ResponseWriter, r *http.Request) {
	id, err := shared.NewSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	s.deps.Synchronizer.Detach(id)
	writeJSON(w, http.StatusOK, map[string]any{"attached": false})
}

func (s *Server) handleSyncSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := shared.NewSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}

	snapshot, err := s.deps.Synchronizer.Snapshot(id)
	if err != nil {
		if errors.Is(err, appsync.ErrNotAttached) {
			writeError(w, http.StatusNotFound, "not_attached", "session has no sync view")
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// worldIndex parses the {index} path segment.
func worldIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "world index must be an integer")
		return 0, false
	}
	return index, true
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// writeDomainError maps domain errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "invalid_code", "access code is not recognized")
	case errors.Is(err, shared.ErrExpiredCode):
		writeError(w, http.StatusUnauthorized, "expired_code", "access code has expired")
	case errors.Is(err, shared.ErrSessionNotFound), errors.Is(err, shared.ErrWorldNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, shared.ErrWorldLocked):
		writeError(w, http.StatusConflict, "world_locked", "world prerequisites are not completed")
	case errors.Is(err, shared.ErrStateTransition), errors.Is(err, shared.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, shared.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry")
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		s.logger.Error("unhandled error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
