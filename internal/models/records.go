package models

import "time"

// DataStatus marks whether a provider produced usable data for a key
type DataStatus string

const (
	StatusOK     DataStatus = "ok"
	StatusNoData DataStatus = "no_data"
	StatusError  DataStatus = "error"
)

// TickerResolution is the outcome of resolving a company name to a listed symbol
type TickerResolution struct {
	Company   string `json:"company"`
	Symbol    string `json:"symbol,omitempty"`    // Validated symbol, empty when not found
	Found     bool   `json:"found"`               // False for private, unknown or unconfirmed
	Candidate string `json:"candidate,omitempty"` // Raw model suggestion before validation
	Variant   bool   `json:"variant,omitempty"`   // Confirmed via an exchange suffix variant
}

// TrendPoint is one observation of relative search interest (0-100)
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value int       `json:"value"`
}

// TrendRecord holds the search-interest series for one keyword
type TrendRecord struct {
	Key    string       `json:"key"`
	Status DataStatus   `json:"status"`
	Error  string       `json:"error,omitempty"`
	Points []TrendPoint `json:"points,omitempty"`
}

// Article is a single news search hit
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	Description string    `json:"description,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// NewsRecord holds the articles found for one keyword
type NewsRecord struct {
	Key      string     `json:"key"`
	Status   DataStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Details  string     `json:"details,omitempty"` // Provider response body on HTTP errors
	Articles []Article  `json:"articles,omitempty"`
}

// PriceBar is one daily close
type PriceBar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceRecord holds recent price history for one ticker
type PriceRecord struct {
	Key       string     `json:"key"`
	Status    DataStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Bars      []PriceBar `json:"bars,omitempty"`
	Narrative string     `json:"narrative,omitempty"`
}

// TopTerm is one row of the daily top search terms snapshot
type TopTerm struct {
	ID   string    `json:"id" badgerhold:"key"` // day|rank|term
	Day  time.Time `json:"day" badgerhold:"index"`
	Term string    `json:"term"`
	Rank int       `json:"rank"`
}

// Insight is the result of a full company analysis
type Insight struct {
	Company     string            `json:"company"`
	Ticker      TickerResolution  `json:"ticker"`
	Competitors []string          `json:"competitors"`
	Keywords    map[string]string `json:"keywords"` // company name -> search keyword
	Tickers     map[string]string `json:"tickers"`  // company name -> resolved symbol (resolved only)
	Text        string            `json:"text"`
}
