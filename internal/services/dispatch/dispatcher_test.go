package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/gnews"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/competitors"
	"github.com/ternarybob/marketlens/internal/services/fetch"
	"github.com/ternarybob/marketlens/internal/services/keyword"
	"github.com/ternarybob/marketlens/internal/services/ticker"
	"github.com/ternarybob/marketlens/internal/services/toptrends"
)

// scriptedSession replies by prompt kind; each field is the reply for that kind
type scriptedSession struct {
	tool     string
	toolErr  error
	company  string
	ticker   string
	rivals   string
	keyword  string
	narrate  string
	followUp string
	prompts  []string
}

func (s *scriptedSession) ID() string { return "test" }

func (s *scriptedSession) Send(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	switch {
	case strings.HasPrefix(prompt, "You are an intelligent API router"):
		return s.tool, s.toolErr
	case strings.HasPrefix(prompt, "Extract the primary company name"):
		return s.company, nil
	case strings.Contains(prompt, "stock ticker symbol"):
		return s.ticker, nil
	case strings.Contains(prompt, "direct competitors"):
		return s.rivals, nil
	case strings.Contains(prompt, "best single keyword"):
		return s.keyword, nil
	case strings.Contains(prompt, "closing prices"):
		return s.narrate, nil
	case strings.Contains(prompt, "follow-up question"):
		return s.followUp, nil
	}
	return "", nil
}

func (s *scriptedSession) SendStructured(ctx context.Context, prompt string, schema map[string]interface{}) (string, error) {
	return s.Send(ctx, prompt)
}

type mockAnalyzer struct {
	companies []string
}

func (m *mockAnalyzer) Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight {
	m.companies = append(m.companies, company)
	return &models.Insight{Company: company, Text: "insight for " + company}
}

type mockTopTerms struct {
	companies []string
}

func (m *mockTopTerms) General(days, top int) string { return "general trends" }

func (m *mockTopTerms) ForCompany(ctx context.Context, company string, limit int) string {
	m.companies = append(m.companies, company)
	return "trends for " + company
}

type mockPrices struct {
	listed map[string]bool
	bars   []models.PriceBar
	err    error
}

func (m *mockPrices) Lookup(ctx context.Context, symbol string) (*interfaces.SymbolInfo, error) {
	if m.listed[symbol] {
		return &interfaces.SymbolInfo{Symbol: symbol}, nil
	}
	return nil, nil
}

func (m *mockPrices) History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	return m.bars, m.err
}

type mockNews struct {
	articles []models.Article
	err      error
	keywords []string
}

func (m *mockNews) Search(ctx context.Context, keyword string) ([]models.Article, error) {
	m.keywords = append(m.keywords, keyword)
	return m.articles, m.err
}

type fixture struct {
	dispatcher *Dispatcher
	analyzer   *mockAnalyzer
	topTerms   *mockTopTerms
	prices     *mockPrices
	news       *mockNews
}

func newFixture(topTerms TopTerms) *fixture {
	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()
	limits := common.ProviderLimits{InitialBackoff: "1ms", MaxBackoff: "1ms"}
	config.Prices.ProviderLimits = limits

	f := &fixture{
		analyzer: &mockAnalyzer{},
		topTerms: &mockTopTerms{},
		prices:   &mockPrices{listed: map[string]bool{"TSLA": true}},
		news:     &mockNews{},
	}
	if topTerms == nil {
		topTerms = f.topTerms
	}

	f.dispatcher = NewDispatcher(
		f.analyzer,
		topTerms,
		ticker.NewResolver(f.prices, &config.Ticker, logger),
		competitors.NewSuggester(logger),
		keyword.NewSuggester(logger),
		fetch.NewNewsFetcher(f.news, nil, limits, logger),
		fetch.NewPriceFetcher(f.prices, &config.Prices, logger),
		logger,
	)
	return f
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		reply  string
		want   Tool
		wantOK bool
	}{
		{"get_stock", ToolStock, true},
		{"  get_news\n", ToolNews, true},
		{"`get_insight`", ToolInsight, true},
		{"\"get_competitors\"", ToolCompetitors, true},
		{"'chat'", ToolChat, true},
		{"get_stock.", ToolChat, false},
		{"Tool: get_stock", ToolChat, false},
		{"GET_STOCK", ToolChat, false},
		{"get_weather", ToolChat, false},
		{"", ToolChat, false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, ok := ParseTool(tt.reply)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestToolsOrder(t *testing.T) {
	var names []Tool
	for _, tool := range Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []Tool{ToolStock, ToolGeneralTrends, ToolCompanyTrends, ToolNews, ToolCompetitors, ToolInsight, ToolChat}, names)
}

func TestDispatch_UnknownToolFallsBackToChat(t *testing.T) {
	f := newFixture(nil)
	session := &scriptedSession{tool: "get_weather", followUp: "Happy to help!"}

	result := f.dispatcher.Dispatch(context.Background(), session, "hello there")

	assert.Equal(t, ToolChat, result.Tool)
	assert.Equal(t, "Happy to help!", result.Reply)
}

func TestDispatch_ClassifierErrorFallsBackToChat(t *testing.T) {
	f := newFixture(nil)
	session := &scriptedSession{toolErr: errors.New("quota"), followUp: "Hi!"}

	result := f.dispatcher.Dispatch(context.Background(), session, "hello")

	assert.Equal(t, ToolChat, result.Tool)
	assert.Equal(t, "Hi!", result.Reply)
}

func TestDispatch_ClassifierPromptListsTools(t *testing.T) {
	f := newFixture(nil)
	session := &scriptedSession{tool: "chat", followUp: "ok"}

	f.dispatcher.Dispatch(context.Background(), session, "what's up")

	require.NotEmpty(t, session.prompts)
	for _, tool := range Tools {
		assert.Contains(t, session.prompts[0], "- "+string(tool.Name)+":")
	}
	assert.Contains(t, session.prompts[0], `"what's up"`)
}

func TestDispatch_Stock(t *testing.T) {
	f := newFixture(nil)
	f.prices.bars = []models.PriceBar{{Date: time.Now().AddDate(0, 0, -1), Close: 250, Volume: 10}}
	session := &scriptedSession{tool: "get_stock", company: "Tesla", ticker: "TSLA", narrate: "Tesla climbed 3% this week."}

	result := f.dispatcher.Dispatch(context.Background(), session, "how is tesla stock doing?")

	assert.Equal(t, ToolStock, result.Tool)
	assert.Equal(t, "Tesla", result.Company)
	assert.Equal(t, "Tesla climbed 3% this week.", result.Reply)
}

func TestDispatch_StockUsesUtteranceWhenNoCompany(t *testing.T) {
	f := newFixture(nil)
	f.prices.bars = []models.PriceBar{{Date: time.Now().AddDate(0, 0, -1), Close: 250, Volume: 10}}
	session := &scriptedSession{tool: "get_stock", company: "general", ticker: "TSLA", narrate: "Up."}

	result := f.dispatcher.Dispatch(context.Background(), session, "TSLA price")

	assert.Equal(t, "TSLA price", result.Company)
	assert.Equal(t, "Up.", result.Reply)
}

func TestDispatch_StockUnresolved(t *testing.T) {
	f := newFixture(nil)
	session := &scriptedSession{tool: "get_stock", company: "Acme Corp", ticker: "PRIVATE"}

	result := f.dispatcher.Dispatch(context.Background(), session, "acme corp share price")

	assert.Contains(t, result.Reply, "Couldn't determine a valid public stock ticker")
}

func TestDispatch_StockProviderError(t *testing.T) {
	f := newFixture(nil)
	f.prices.err = errors.New("upstream timeout")
	session := &scriptedSession{tool: "get_stock", company: "Tesla", ticker: "TSLA"}

	result := f.dispatcher.Dispatch(context.Background(), session, "tesla stock")

	assert.Contains(t, result.Reply, "Error fetching stock data for TSLA")
	assert.Contains(t, result.Reply, "upstream timeout")
}

func TestDispatch_CompanyTrends(t *testing.T) {
	f := newFixture(nil)

	result := f.dispatcher.Dispatch(context.Background(), &scriptedSession{tool: "get_company_trends", company: "Apple"}, "apple trends")
	assert.Equal(t, "trends for Apple", result.Reply)
	assert.Equal(t, []string{"Apple"}, f.topTerms.companies)

	result = f.dispatcher.Dispatch(context.Background(), &scriptedSession{tool: "get_company_trends", company: "\"General\""}, "trends")
	assert.Equal(t, "general trends", result.Reply)
}

func TestDispatch_News(t *testing.T) {
	f := newFixture(nil)
	f.news.articles = []models.Article{
		{Title: "Tesla opens new plant", URL: "https://example.com/1"},
		{Title: "Tesla recalls cars", URL: "https://example.com/2"},
	}
	session := &scriptedSession{tool: "get_news", keyword: "tesla"}

	result := f.dispatcher.Dispatch(context.Background(), session, "any news on tesla?")

	assert.Equal(t, ToolNews, result.Tool)
	assert.Equal(t, []string{"tesla"}, f.news.keywords)
	assert.Equal(t, "**News for 'tesla'**:\n- [Tesla opens new plant](https://example.com/1)\n- [Tesla recalls cars](https://example.com/2)", result.Reply)
}

func TestDispatch_NewsError(t *testing.T) {
	f := newFixture(nil)
	f.news.err = &gnews.APIError{StatusCode: 401, Body: "bad token"}
	session := &scriptedSession{tool: "get_news", keyword: "tesla"}

	result := f.dispatcher.Dispatch(context.Background(), session, "tesla news")

	assert.Equal(t, "**News for 'tesla'**: Error: HTTP 401 - bad token", result.Reply)
}

func TestDispatch_Competitors(t *testing.T) {
	f := newFixture(nil)

	result := f.dispatcher.Dispatch(context.Background(),
		&scriptedSession{tool: "get_competitors", company: "Tesla", rivals: `["Ford", "GM", "BYD"]`}, "who competes with tesla")
	assert.Equal(t, "**Top Competitors of `Tesla`**:\n- Ford\n- GM\n- BYD", result.Reply)

	result = f.dispatcher.Dispatch(context.Background(),
		&scriptedSession{tool: "get_competitors", company: "Tesla", rivals: "no idea"}, "who competes with tesla")
	assert.Equal(t, "No competitors found for `Tesla`.", result.Reply)

	result = f.dispatcher.Dispatch(context.Background(),
		&scriptedSession{tool: "get_competitors", company: ""}, "who are the competitors")
	assert.Contains(t, result.Reply, "Please specify the company")
}

func TestDispatch_Insight(t *testing.T) {
	f := newFixture(nil)

	result := f.dispatcher.Dispatch(context.Background(), &scriptedSession{tool: "get_insight", company: "Tesla"}, "analyse tesla")
	assert.Equal(t, "insight for Tesla", result.Reply)
	require.NotNil(t, result.Insight)
	assert.Equal(t, []string{"Tesla"}, f.analyzer.companies)

	result = f.dispatcher.Dispatch(context.Background(), &scriptedSession{tool: "get_insight", company: "general"}, "analyse")
	assert.Contains(t, result.Reply, "Please specify the company")
	assert.Len(t, f.analyzer.companies, 1)
}

type mockWarehouse struct{ terms []models.TopTerm }

func (m *mockWarehouse) TopTerms(ctx context.Context, since time.Time, maxRank int) ([]models.TopTerm, error) {
	return m.terms, nil
}

func (m *mockWarehouse) Close() error { return nil }

func TestDispatch_WhatsTrendingToday(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	warehouse := &mockWarehouse{terms: []models.TopTerm{
		{Day: today, Term: "solar eclipse", Rank: 1},
		{Day: today, Term: "march madness", Rank: 2},
		{Day: today.AddDate(0, 0, -1), Term: "oscars", Rank: 1},
	}}
	config := common.NewDefaultConfig().Warehouse
	topTerms := toptrends.NewService(warehouse, nil, nil, &config, arbor.NewLogger())
	topTerms.Load(context.Background())

	f := newFixture(topTerms)
	session := &scriptedSession{tool: "get_general_trends"}

	result := f.dispatcher.Dispatch(context.Background(), session, "what's trending today")

	assert.Equal(t, ToolGeneralTrends, result.Tool)
	assert.Contains(t, result.Reply, "**"+today.Format("2006-01-02")+"**:\n  1. solar eclipse\n  2. march madness")
	assert.Contains(t, result.Reply, "  1. oscars")
	assert.Len(t, session.prompts, 1, "general trends need no company extraction")
}

func TestFollowUp(t *testing.T) {
	f := newFixture(nil)

	assert.Equal(t, "Sure.", f.dispatcher.FollowUp(context.Background(), &scriptedSession{followUp: " Sure. "}, "can you elaborate?"))
	assert.Contains(t, f.dispatcher.FollowUp(context.Background(), &scriptedSession{followUp: ""}, "?"), "Sorry")
}
