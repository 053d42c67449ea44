package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
)

// APIHandler serves /health, /version and the JSON 404
type APIHandler struct {
	providers map[string]string
	warehouse bool
	started   time.Time
	logger    arbor.ILogger
}

func NewAPIHandler(config *common.Config, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		providers: map[string]string{
			"llm":    string(config.LLM.DefaultProvider),
			"news":   config.News.Provider,
			"prices": config.Prices.Provider,
		},
		warehouse: config.Warehouse.Enabled,
		started:   time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns build information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}

// HealthHandler reports liveness and which providers this instance was configured with
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   common.GetVersion(),
		"providers": h.providers,
		"warehouse": h.warehouse,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// NotFoundHandler answers unknown routes with the standard error body
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("No route")
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "Not Found",
		"path":   r.URL.Path,
	})
}
