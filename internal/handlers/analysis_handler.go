package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/conversation"
)

// StartChatRequest is the body of POST /start_chat
type StartChatRequest struct {
	Company   string `json:"company" validate:"required,max=500"`
	SessionID string `json:"session_id" validate:"max=100"`
}

// FollowUpRequest is the body of POST /follow_up
type FollowUpRequest struct {
	Question  string `json:"question" validate:"required,max=500"`
	SessionID string `json:"session_id" validate:"max=100"`
}

// QueryRequest is the body of POST /query and of /ws text frames
type QueryRequest struct {
	Query     string `json:"query" validate:"required,max=500"`
	SessionID string `json:"session_id" validate:"max=100"`
}

// AnalysisHandler serves the conversational endpoints
type AnalysisHandler struct {
	sessions *conversation.Manager
	analysis Analyzer
	router   QueryRouter
	logger   arbor.ILogger
}

func NewAnalysisHandler(sessions *conversation.Manager, analysis Analyzer, router QueryRouter, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		sessions: sessions,
		analysis: analysis,
		router:   router,
		logger:   logger,
	}
}

// StartChatHandler runs a full company analysis on the selected session
func (h *AnalysisHandler) StartChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req StartChatRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	session := h.sessions.Get(r.Context(), SessionID(r, req.SessionID))

	h.logger.Info().
		Str("session_id", session.ID()).
		Str("company", req.Company).
		Msg("Starting company analysis")

	insight := h.analysis.Start(r.Context(), session, req.Company)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insight":     insight.Text,
		"session_id":  session.ID(),
		"ticker":      insight.Ticker.Symbol,
		"competitors": insight.Competitors,
		"tickers":     insight.Tickers,
		"keywords":    insight.Keywords,
	})
}

// FollowUpHandler answers a conversational follow-up in session context
func (h *AnalysisHandler) FollowUpHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req FollowUpRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	session := h.sessions.Get(r.Context(), SessionID(r, req.SessionID))
	reply := h.router.FollowUp(r.Context(), session, req.Question)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply":      reply,
		"session_id": session.ID(),
	})
}

// QueryHandler routes a free-text query to a tool
func (h *AnalysisHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req QueryRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	session := h.sessions.Get(r.Context(), SessionID(r, req.SessionID))
	result := h.router.Dispatch(r.Context(), session, req.Query)

	WriteJSON(w, http.StatusOK, queryResponse(result, session.ID()))
}
