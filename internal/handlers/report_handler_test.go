package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/services/report"
)

func TestReportHandler(t *testing.T) {
	h := NewReportHandler(report.NewService(arbor.NewLogger()), arbor.NewLogger())

	t.Run("pdf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/report",
			strings.NewReader(`{"markdown":"# Tesla\n\n- point","format":"pdf","title":"Tesla Insight"}`))
		rec := httptest.NewRecorder()
		h.RenderHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "tesla-insight.pdf")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})

	t.Run("html is the default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(`{"markdown":"| a |\n|---|\n| 1 |"}`))
		rec := httptest.NewRecorder()
		h.RenderHandler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "<table>")
	})

	t.Run("unknown format", func(t *testing.T) {
		rec, out := doJSON(t, h.RenderHandler, http.MethodPost, "/report", `{"markdown":"x","format":"docx"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "format must be one of: html pdf", out["error"])
	})

	t.Run("missing markdown", func(t *testing.T) {
		rec, out := doJSON(t, h.RenderHandler, http.MethodPost, "/report", `{"format":"pdf"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "markdown is required", out["error"])
	})
}
