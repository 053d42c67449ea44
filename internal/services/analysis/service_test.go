package analysis

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/competitors"
	"github.com/ternarybob/marketlens/internal/services/fetch"
	"github.com/ternarybob/marketlens/internal/services/insight"
	"github.com/ternarybob/marketlens/internal/services/keyword"
	"github.com/ternarybob/marketlens/internal/services/ticker"
	"github.com/ternarybob/marketlens/internal/services/transform"
)

// scriptedSession answers each prompt kind with a canned reply
type scriptedSession struct {
	mu      sync.Mutex
	tickers map[string]string // lower-case company -> reply
	rivals  string
	insight string
	prompts []string
}

func (s *scriptedSession) ID() string { return "test" }

func (s *scriptedSession) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	switch {
	case strings.Contains(prompt, "stock ticker symbol"):
		for company, reply := range s.tickers {
			if strings.Contains(prompt, "'"+company+"'") {
				return reply, nil
			}
		}
		return "UNKNOWN", nil
	case strings.Contains(prompt, "direct competitors"):
		return s.rivals, nil
	case strings.Contains(prompt, "best single keyword"):
		start := strings.Index(prompt, "input '") + len("input '")
		end := strings.Index(prompt[start:], "'")
		return strings.ToLower(prompt[start : start+end]), nil
	case strings.Contains(prompt, "closing prices"):
		return "Moved sideways.", nil
	case strings.Contains(prompt, "comprehensive market analysis"):
		return s.insight, nil
	}
	return "", nil
}

func (s *scriptedSession) SendStructured(ctx context.Context, prompt string, schema map[string]interface{}) (string, error) {
	return s.Send(ctx, prompt)
}

func (s *scriptedSession) prompt(contains string) string {
	for _, p := range s.prompts {
		if strings.Contains(p, contains) {
			return p
		}
	}
	return ""
}

type mockPrices struct {
	listed  map[string]bool
	history []string
}

func (m *mockPrices) Lookup(ctx context.Context, symbol string) (*interfaces.SymbolInfo, error) {
	if m.listed[symbol] {
		return &interfaces.SymbolInfo{Symbol: symbol}, nil
	}
	return nil, nil
}

func (m *mockPrices) History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	m.history = append(m.history, symbol)
	return []models.PriceBar{{Date: end.AddDate(0, 0, -1), Close: 10, Volume: 1}}, nil
}

type mockTrends struct{}

func (mockTrends) InterestOverTime(ctx context.Context, keyword string) ([]models.TrendPoint, error) {
	return []models.TrendPoint{{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Value: 50}}, nil
}

type mockNews struct{}

func (mockNews) Search(ctx context.Context, keyword string) ([]models.Article, error) {
	return []models.Article{{Title: keyword + " headline", URL: "https://example.com/" + keyword}}, nil
}

func newTestService(prices interfaces.PriceProvider) *Service {
	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()
	limits := common.ProviderLimits{InitialBackoff: "1ms", MaxBackoff: "1ms"}
	config.Prices.ProviderLimits = limits

	return NewService(
		ticker.NewResolver(prices, &config.Ticker, logger),
		competitors.NewSuggester(logger),
		keyword.NewSuggester(logger),
		fetch.NewTrendFetcher(mockTrends{}, limits, logger),
		fetch.NewNewsFetcher(mockNews{}, transform.NewService(logger), limits, logger),
		fetch.NewPriceFetcher(prices, &config.Prices, logger),
		insight.NewSynthesizer(logger),
		logger,
	)
}

func TestStart_ResolvedTickers(t *testing.T) {
	prices := &mockPrices{listed: map[string]bool{"TSLA": true, "F": true}}
	session := &scriptedSession{
		tickers: map[string]string{"tesla": "TSLA", "ford": "F", "gm": "PRIVATE"},
		rivals:  `["Ford", "GM"]`,
		insight: "Tesla insight",
	}

	result := newTestService(prices).Start(context.Background(), session, "Tesla")

	assert.Equal(t, "Tesla insight", result.Text)
	assert.True(t, result.Ticker.Found)
	assert.Equal(t, "TSLA", result.Ticker.Symbol)
	assert.Equal(t, []string{"Ford", "GM"}, result.Competitors)
	assert.Equal(t, map[string]string{"Tesla": "tesla", "Ford": "ford", "GM": "gm"}, result.Keywords)
	assert.Equal(t, map[string]string{"Tesla": "TSLA", "Ford": "F"}, result.Tickers)
	assert.Equal(t, []string{"TSLA", "F"}, prices.history)

	prompt := session.prompt("comprehensive market analysis")
	require.NotEmpty(t, prompt)
	assert.False(t, strings.HasPrefix(prompt, "Warning:"))
	assert.Contains(t, prompt, "Moved sideways.")
	assert.Contains(t, prompt, "gm headline")
}

func TestStart_AcmeCorpWithoutTickers(t *testing.T) {
	prices := &mockPrices{}
	session := &scriptedSession{
		tickers: map[string]string{"acme corp": "ACME"},
		rivals:  `["Globex", "Initech", "Umbrella", "Hooli"]`,
		insight: "Acme insight",
	}

	result := newTestService(prices).Start(context.Background(), session, "Acme Corp")

	assert.Equal(t, "Acme insight", result.Text)
	assert.False(t, result.Ticker.Found)
	assert.Len(t, result.Competitors, 3)
	assert.Empty(t, result.Tickers)
	assert.Empty(t, prices.history)

	prompt := session.prompt("comprehensive market analysis")
	require.True(t, strings.HasPrefix(prompt, "Warning:"))
	assert.Contains(t, prompt, insight.CaveatStock)
	assert.NotContains(t, prompt, insight.CaveatTrends)
	assert.NotContains(t, prompt, insight.CaveatNews)
}
