// Package finnhub adapts Finnhub market news to the news provider contract.
// Finnhub has no free-text search, so general market news is filtered by keyword.
package finnhub

import (
	"context"
	"fmt"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/models"
)

// Client searches Finnhub market news
type Client struct {
	fetch  func(ctx context.Context, category string) ([]finnhub.MarketNews, error)
	max    int
	logger arbor.ILogger
}

// NewClient creates a Finnhub news provider returning at most max articles per keyword
func NewClient(apiKey string, max int, logger arbor.ILogger) *Client {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	api := finnhub.NewAPIClient(cfg).DefaultApi

	if max <= 0 {
		max = 5
	}

	return &Client{
		fetch: func(ctx context.Context, category string) ([]finnhub.MarketNews, error) {
			news, resp, err := api.MarketNews(ctx).Category(category).Execute()
			if err != nil {
				if resp != nil {
					return nil, &APIError{StatusCode: resp.StatusCode, Err: err}
				}
				return nil, err
			}
			return news, nil
		},
		max:    max,
		logger: logger,
	}
}

// Search implements interfaces.NewsProvider
func (c *Client) Search(ctx context.Context, keyword string) ([]models.Article, error) {
	news, err := c.fetch(ctx, "general")
	if err != nil {
		return nil, fmt.Errorf("finnhub market news: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	var articles []models.Article
	for _, item := range news {
		if !matches(item, needle) {
			continue
		}
		articles = append(articles, toArticle(item))
		if len(articles) == c.max {
			break
		}
	}

	c.logger.Debug().
		Str("keyword", keyword).
		Int("scanned", len(news)).
		Int("matched", len(articles)).
		Msg("Filtered Finnhub market news")

	return articles, nil
}

func matches(item finnhub.MarketNews, needle string) bool {
	if needle == "" {
		return false
	}
	for _, field := range []*string{item.Headline, item.Summary, item.Related} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

func toArticle(item finnhub.MarketNews) models.Article {
	var a models.Article
	if item.Headline != nil {
		a.Title = *item.Headline
	}
	if item.Url != nil {
		a.URL = *item.Url
	}
	if item.Source != nil {
		a.Source = *item.Source
	}
	if item.Summary != nil {
		a.Description = *item.Summary
	}
	if item.Datetime != nil {
		a.PublishedAt = time.Unix(*item.Datetime, 0).UTC()
	}
	return a
}

// APIError is a non-2xx response from Finnhub
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
