package transform

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/models"
)

// Service normalises article text returned by news providers.
// Providers mix plain text, HTML fragments and entities in titles and descriptions.
type Service struct {
	logger    arbor.ILogger
	converter *md.Converter
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// CleanArticles normalises every article in place and drops entries without a title or URL
func (s *Service) CleanArticles(articles []models.Article) []models.Article {
	out := articles[:0]
	for _, a := range articles {
		a.Title = s.PlainText(a.Title)
		a.Source = s.PlainText(a.Source)
		a.Description = s.HTMLToMarkdown(a.Description)
		a.URL = strings.TrimSpace(a.URL)
		if a.Title == "" || a.URL == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// PlainText strips markup and collapses whitespace
func (s *Service) PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return collapseSpace(content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to parse HTML fragment, using raw text")
		return collapseSpace(content)
	}
	return collapseSpace(doc.Text())
}

// HTMLToMarkdown converts an HTML fragment to markdown, falling back to plain text
func (s *Service) HTMLToMarkdown(content string) string {
	if !strings.Contains(content, "<") {
		return s.PlainText(content)
	}

	converted, err := s.converter.ConvertString(content)
	if err != nil || strings.TrimSpace(converted) == "" {
		s.logger.Debug().Err(err).Int("html_length", len(content)).Msg("Markdown conversion failed, using plain text")
		return s.PlainText(content)
	}
	return strings.TrimSpace(converted)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
