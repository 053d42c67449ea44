// Package report renders insight markdown as standalone HTML or PDF documents.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Format is an output document format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Arial, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
th { background: #eee; }
code { background: #f5f5f5; padding: 0 0.2rem; }
</style>
</head>
<body>
%s</body>
</html>
`

// Service converts markdown reports
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: logger,
	}
}

// Render produces the document for format
func (s *Service) Render(markdown, title string, format Format) ([]byte, error) {
	switch format {
	case FormatPDF:
		return s.PDF(markdown, title)
	case FormatHTML, "":
		return s.HTML(markdown, title)
	default:
		return nil, fmt.Errorf("unsupported report format '%s'", format)
	}
}

// HTML renders markdown as a complete HTML page. Raw HTML in the markdown is not passed through.
func (s *Service) HTML(markdown, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	if title == "" {
		title = "Market Insight"
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, htmlTemplate, html.EscapeString(title), body.String())

	s.logger.Debug().Int("markdown_len", len(markdown)).Int("html_len", out.Len()).Msg("Rendered HTML report")
	return out.Bytes(), nil
}

// PDF renders markdown as an A4 PDF. title is written as document metadata and as a page header.
func (s *Service) PDF(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetCreator("MarketLens", true)
	if title != "" {
		doc.SetTitle(title, true)
	}
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont(bodyFont, "I", 7)
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	w := &pdfWriter{
		doc:       doc,
		translate: doc.UnicodeTranslatorFromDescriptor(""),
		size:      bodySize,
	}

	if title != "" {
		doc.SetFont(bodyFont, "B", 16)
		doc.MultiCell(0, 8, w.translate(title), "", "L", false)
		doc.Ln(2)
	}
	w.applyFont()

	source := []byte(markdown)
	root := s.markdown.Parser().Parse(text.NewReader(source))
	w.source = source

	if err := w.write(root); err != nil {
		return nil, fmt.Errorf("failed to layout PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("markdown_len", len(markdown)).Int("pdf_size", buf.Len()).Msg("Rendered PDF report")
	return buf.Bytes(), nil
}

// Filename returns a download file name for title
func Filename(title string, format Format) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(title))

	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	name = strings.Trim(name, "-")
	if name == "" {
		name = "market-insight"
	}
	if format == FormatPDF {
		return name + ".pdf"
	}
	return name + ".html"
}
