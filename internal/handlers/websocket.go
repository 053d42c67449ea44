package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/conversation"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSResponse is one reply frame on /ws
type WSResponse struct {
	Status    string `json:"status"`
	Reply     string `json:"reply,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Company   string `json:"company,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WebSocketHandler runs the query dispatcher over a websocket.
// Frames on one connection are handled in order, so a client sees replies in the order it asked.
type WebSocketHandler struct {
	sessions *conversation.Manager
	router   QueryRouter
	logger   arbor.ILogger
	clients  atomic.Int64
}

func NewWebSocketHandler(sessions *conversation.Manager, router QueryRouter, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		router:   router,
		logger:   logger,
	}
}

// HandleWebSocket handles GET /ws. The connection's default session comes from
// ?session_id= or the X-Session-ID header; a frame's session_id overrides it.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	connSession := SessionID(r, r.URL.Query().Get("session_id"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsMaxFrameSize)

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", h.clients.Add(1))

	defer func() {
		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", h.clients.Add(-1))
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		var req QueryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			// Plain text frames are treated as the query itself
			req.Query = strings.TrimSpace(string(data))
		}
		if err := validate.Struct(&req); err != nil {
			if !h.send(conn, WSResponse{Status: "error", Error: validationMessage(err)}) {
				return
			}
			continue
		}

		id := req.SessionID
		if id == "" {
			id = connSession
		}
		session := h.sessions.Get(ctx, id)
		result := h.router.Dispatch(ctx, session, req.Query)

		if !h.send(conn, WSResponse{
			Status:    "ok",
			Reply:     result.Reply,
			Tool:      string(result.Tool),
			Company:   result.Company,
			SessionID: session.ID(),
		}) {
			return
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, resp WSResponse) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write WebSocket frame")
		return false
	}
	return true
}

// queryResponse is the shared reply shape of /query and /ws
func queryResponse(result dispatch.Result, sessionID string) map[string]interface{} {
	resp := map[string]interface{}{
		"reply":      result.Reply,
		"tool":       string(result.Tool),
		"session_id": sessionID,
	}
	if result.Company != "" {
		resp["company"] = result.Company
	}
	if result.Insight != nil {
		resp["ticker"] = result.Insight.Ticker.Symbol
		resp["competitors"] = result.Insight.Competitors
	}
	return resp
}
