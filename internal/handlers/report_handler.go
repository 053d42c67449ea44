package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/report"
)

// ReportRequest is the body of POST /report
type ReportRequest struct {
	Markdown string `json:"markdown" validate:"required"`
	Format   string `json:"format" validate:"omitempty,oneof=html pdf"`
	Title    string `json:"title" validate:"max=200"`
}

// ReportHandler renders insight markdown as a downloadable document
type ReportHandler struct {
	renderer ReportRenderer
	logger   arbor.ILogger
}

func NewReportHandler(renderer ReportRenderer, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// RenderHandler handles POST /report
func (h *ReportHandler) RenderHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ReportRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	format := report.Format(req.Format)
	if format == "" {
		format = report.FormatHTML
	}

	doc, err := h.renderer.Render(req.Markdown, req.Title, format)
	if err != nil {
		h.logger.Error().Err(err).Str("format", string(format)).Msg("Failed to render report")
		WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(req.Title, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
