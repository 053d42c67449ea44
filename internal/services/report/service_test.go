package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const sampleInsight = `## Market & Trend Summary

Demand for **electric vehicles** keeps *rising*, see https://example.com/ev.

1. First point
2. Second point

- Strength: brand
  - nested detail
- Weakness: ~~margins~~ costs

| Ticker | Close |
|--------|-------|
| TSLA   | 250.50 |

> Not financial advice.

---

` + "```\nraw data\n```\n\nCafé société – “quoted”"

func TestHTML(t *testing.T) {
	s := NewService(arbor.NewLogger())

	out, err := s.HTML(sampleInsight, "Tesla <Insight>")
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>Tesla &lt;Insight&gt;</title>")
	assert.Contains(t, doc, `<h2 id="market--trend-summary">Market &amp; Trend Summary</h2>`)
	assert.Contains(t, doc, "<strong>electric vehicles</strong>")
	assert.Contains(t, doc, "<del>margins</del>")
	assert.Contains(t, doc, `<a href="https://example.com/ev">`)
	assert.Contains(t, doc, "<table>")
}

func TestHTML_DropsRawHTML(t *testing.T) {
	s := NewService(arbor.NewLogger())

	out, err := s.HTML("hello <script>alert(1)</script>", "")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert")
	assert.Contains(t, string(out), "<title>Market Insight</title>")
}

func TestPDF(t *testing.T) {
	s := NewService(arbor.NewLogger())

	tests := []struct {
		name     string
		markdown string
		title    string
	}{
		{"full insight", sampleInsight, "Tesla Insight"},
		{"empty", "", ""},
		{"long table cells", "| A | B |\n|---|---|\n| " + strings.Repeat("word ", 60) + "| x |", "Table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.PDF(tt.markdown, tt.title)
			require.NoError(t, err)
			require.Greater(t, len(out), 4)
			assert.Equal(t, "%PDF", string(out[:4]))
		})
	}
}

func TestRender(t *testing.T) {
	s := NewService(arbor.NewLogger())

	out, err := s.Render("# Hi", "t", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))

	out, err = s.Render("# Hi", "t", "")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1")

	_, err = s.Render("# Hi", "t", "docx")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "tesla-q3-insight.pdf", Filename("Tesla: Q3 Insight!", FormatPDF))
	assert.Equal(t, "market-insight.html", Filename("  ", FormatHTML))
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/html; charset=utf-8", FormatHTML.ContentType())
}
