package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is kept in APIError.Message.
	maxErrorBody = 4096
)

// Client is an EODHD API client. Call pacing is left to the caller; the price
// fetcher wraps every call in its own limiter and retry policy.
type Client struct {
	base       *url.URL
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
// Unparseable values are ignored.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL == "" {
			return
		}
		if u, err := url.Parse(strings.TrimRight(baseURL, "/")); err == nil {
			c.base = u
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

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		base:       base,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint builds the request URL for path with the token and JSON format applied
func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_token", c.apiKey)
	q.Set("fmt", "json")
	u.RawQuery = q.Encode()
	return u.String()
}

// get fetches path and decodes the JSON body into result.
// A 429 becomes *RateLimitError; any other non-200 becomes *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
	if err != nil {
		return fmt.Errorf("build EODHD request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("EODHD request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug().
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("EODHD response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode EODHD %s response: %w", path, err)
	}
	return nil
}

// retryAfter reads a Retry-After header given in seconds, defaulting to one minute
func retryAfter(header string) time.Duration {
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return time.Minute
}
