package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "stockshock-backend/internal/common/errors"
	"stockshock-backend/internal/models"
)

// handleQuery is the main entry point: one user message in, one composed
// dashboard response out.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.obs.RecordRequest(r.Context(), "invalid")
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.obs.RecordRequest(r.Context(), "invalid")
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.orch.Process(r.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			status = apperrors.HTTPStatus(stdErr.Code)
		}
		s.obs.RecordRequest(r.Context(), "error")
		s.obs.RecordRequestDuration(r.Context(), time.Since(start), "error")
		// Callers get a generic message, details stay in the logs.
		writeJSONError(w, status, "failed to process query")
		return
	}

	s.obs.RecordRequest(r.Context(), "success")
	s.obs.RecordRequestDuration(r.Context(), time.Since(start), "success")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChaos(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}

	state, err := s.chaos.Get(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).Error("theming fetch failed", map[string]interface{}{
			"userId": userID,
		})
		writeJSONError(w, http.StatusInternalServerError, "failed to load theming state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chaos": state})
}

func (s *Server) handleSetChaos(w http.ResponseWriter, r *http.Request) {
	var req models.ChaosStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := s.chaos.Set(r.Context(), req.UserID, req.Chaos); err != nil {
		s.logger.WithError(err).Error("theming persistence failed", map[string]interface{}{
			"userId": req.UserID,
		})
		writeJSONError(w, http.StatusInternalServerError, "failed to save theming state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports readiness only when the embedded store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
