package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/toptrends"
)

// TrendsHandler serves the warehouse top terms snapshot
type TrendsHandler struct {
	trends GeneralTrends
	logger arbor.ILogger
}

func NewTrendsHandler(trends GeneralTrends, logger arbor.ILogger) *TrendsHandler {
	return &TrendsHandler{
		trends: trends,
		logger: logger,
	}
}

// GeneralHandler handles GET /trends/general?days=&top=
func (h *TrendsHandler) GeneralHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	days := QueryInt(r, "days", toptrends.DefaultDays)
	top := QueryInt(r, "top", toptrends.DefaultTopTerms)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply": h.trends.General(days, top),
		"days":  days,
		"top":   top,
	})
}
