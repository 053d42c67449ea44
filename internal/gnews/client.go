// Package gnews provides a client for the GNews search API (https://gnews.io).
package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the GNews API.
	DefaultBaseURL = "https://gnews.io/api/v4"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second
)

// Client is a GNews API client.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	country    string
	max        int
	httpClient *http.Client
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSearchDefaults sets the language, country and article count sent with every search.
func WithSearchDefaults(language, country string, max int) ClientOption {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
		if country != "" {
			c.country = country
		}
		if max > 0 {
			c.max = max
		}
	}
}

// NewClient creates a new GNews API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		language: "en",
		country:  "us",
		max:      5,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchResponse struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

// Search implements interfaces.NewsProvider
func (c *Client) Search(ctx context.Context, keyword string) ([]models.Article, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("GNews API key is not configured")
	}

	params := url.Values{}
	params.Set("q", keyword)
	params.Set("lang", c.language)
	params.Set("country", c.country)
	params.Set("max", fmt.Sprintf("%d", c.max))
	params.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().Str("keyword", keyword).Msg("GNews search request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	articles := make([]models.Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		article := models.Article{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			Description: a.Description,
		}
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			article.PublishedAt = t
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// APIError is a non-200 response from GNews. Body carries the provider's error payload.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Temporary reports whether retrying may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
