package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/conversation"
)

// SessionHandler manages conversation sessions
type SessionHandler struct {
	sessions *conversation.Manager
	logger   arbor.ILogger
}

func NewSessionHandler(sessions *conversation.Manager, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateHandler starts a fresh session (POST /sessions)
func (h *SessionHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.New(r.Context())
	WriteJSON(w, http.StatusCreated, map[string]string{"session_id": session.ID()})
}

// ListHandler returns session summaries, most recently active first (GET /sessions)
func (h *SessionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sessions")
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	summaries := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, map[string]interface{}{
			"session_id": s.ID,
			"turns":      len(s.Turns),
			"created_at": s.CreatedAt,
			"updated_at": s.UpdatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

// GetHandler returns the turn history of a session (GET /sessions/{id})
func (h *SessionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r, "/sessions/")
	session, ok := h.sessions.Lookup(r.Context(), id)
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	snapshot := session.Snapshot()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": snapshot.ID,
		"turns":      snapshot.Turns,
		"created_at": snapshot.CreatedAt,
		"updated_at": snapshot.UpdatedAt,
	})
}

// DeleteHandler resets a session (DELETE /sessions/{id}). ?purge=true removes it entirely.
func (h *SessionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := PathID(r, "/sessions/")
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))

	if purge {
		if err := h.sessions.Delete(r.Context(), id); err != nil {
			h.logger.Error().Err(err).Str("session_id", id).Msg("Failed to delete session")
			WriteError(w, http.StatusInternalServerError, "Failed to delete session")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "deleted": true})
		return
	}

	if !h.sessions.Reset(r.Context(), id) {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"session_id": id, "reset": true})
}
