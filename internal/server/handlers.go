package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	*models.Answer
	Degraded bool   `json:"degraded,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

type historyResponse struct {
	ID    string        `json:"id"`
	Turns []models.Turn `json:"turns"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"sessions": s.sessions.Len(),
	}
	if s.index != nil {
		if stats := s.index.Stats(); stats != nil {
			resp["index"] = stats
		}
	}
	configInfo := map[string]interface{}{
		"document":           s.config.Document.Path,
		"chunk_size":         s.config.Chunking.Size,
		"chunk_overlap":      s.config.Chunking.OverlapOrDefault(),
		"embedding_provider": s.config.Embedding.Provider,
		"embedding_model":    s.config.Embedding.Model,
		"generation_model":   s.config.Generation.Model,
		"top_k":              s.config.Retrieval.TopK,
		"max_turns":          s.config.Memory.MaxTurns,
	}
	if s.transcript != nil {
		sessions, err := s.transcript.CountSessions(ctx)
		if err != nil {
			s.logger.Error("status: count sessions failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		turns, err := s.transcript.CountTurns(ctx)
		if err != nil {
			s.logger.Error("status: count turns failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["recorded_sessions"] = sessions
		resp["recorded_turns"] = turns
		configInfo["database_path"] = s.config.Storage.DatabasePath
		if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("session created", zap.String("id", sess.ID()))
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("session", sess.ID()), zap.String("question", utils.Truncate(req.Question, 80)))

	answer, err := sess.Ask(r.Context(), req.Question)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, askResponse{Answer: answer})
	case models.IsRecoverable(err):
		s.logger.Warn("ask degraded", zap.String("session", sess.ID()), zap.Error(err))
		s.respondJSON(w, http.StatusOK, askResponse{
			Answer: &models.Answer{
				Question: req.Question,
				Text:     session.ErrorPrefix + err.Error(),
				Sources:  []*models.Source{},
			},
			Degraded: true,
			Kind:     models.KindOf(err),
		})
	default:
		s.logger.Error("ask failed", zap.String("session", sess.ID()), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sess, ok := s.sessions.Get(id); ok {
		turns := sess.History()
		if turns == nil {
			turns = []models.Turn{}
		}
		s.respondJSON(w, http.StatusOK, historyResponse{ID: id, Turns: turns})
		return
	}
	// Sessions from earlier runs are served from the transcript.
	if s.transcript != nil {
		_, err := s.transcript.GetSession(r.Context(), id)
		if err == nil {
			var turns []models.Turn
			turns, err = s.transcript.ListTurns(r.Context(), id)
			if err == nil {
				if turns == nil {
					turns = []models.Turn{}
				}
				s.respondJSON(w, http.StatusOK, historyResponse{ID: id, Turns: turns})
				return
			}
		}
		if !errors.Is(err, storage.ErrSessionNotFound) {
			s.logger.Error("read transcript failed", zap.String("session", id), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondError(w, http.StatusNotFound, "session not found")
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete session request", zap.String("id", id))
	if !s.sessions.Delete(id) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// statusFor maps a non-recoverable query error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, models.ErrInitialization):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
