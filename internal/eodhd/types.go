// Package eodhd provides a client for the EODHD (End of Day Historical Data) API.
// It implements the price provider used when [prices] provider = "eodhd".
package eodhd

import (
	"fmt"
	"net/http"
	"time"
)

// EODData represents a single day's end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODData.
type EODResponse []EODData

// RealTimeQuote is the delayed quote returned by the real-time endpoint.
// Unlisted codes come back with Timestamp "NA".
type RealTimeQuote struct {
	Code      string      `json:"code"`
	Timestamp interface{} `json:"timestamp"`
	Close     interface{} `json:"close"`
	Volume    interface{} `json:"volume"`
}

// Listed reports whether the quote refers to a traded instrument
func (q *RealTimeQuote) Listed() bool {
	if q == nil || q.Code == "" {
		return false
	}
	_, isNumber := q.Timestamp.(float64)
	return isNumber
}

// APIError represents an error from the EODHD API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Temporary reports whether retrying may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("EODHD rate limit exceeded, retry after %v", e.RetryAfter)
}

// Temporary reports that rate limits are always worth retrying
func (e *RateLimitError) Temporary() bool {
	return true
}
