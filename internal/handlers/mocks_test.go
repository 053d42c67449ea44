package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/conversation"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
)

type echoLLM struct{}

func (echoLLM) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	return &interfaces.ContentResponse{Text: "ok"}, nil
}

func newTestSessions() *conversation.Manager {
	return conversation.NewManager(echoLLM{}, nil, &common.SessionConfig{MaxHistoryTurns: 10}, arbor.NewLogger())
}

type mockAnalyzer struct {
	mu        sync.Mutex
	companies []string
	sessions  []string
}

func (m *mockAnalyzer) Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight {
	m.mu.Lock()
	m.companies = append(m.companies, company)
	m.sessions = append(m.sessions, session.ID())
	m.mu.Unlock()

	return &models.Insight{
		Company:     company,
		Ticker:      models.TickerResolution{Company: company, Symbol: "TSLA", Found: true},
		Competitors: []string{"Ford", "Rivian"},
		Keywords:    map[string]string{company: "tesla"},
		Tickers:     map[string]string{company: "TSLA"},
		Text:        "## Market & Trend Summary\nInsight for " + company,
	}
}

type mockRouter struct {
	mu         sync.Mutex
	utterances []string
	sessions   []string
}

func (m *mockRouter) Dispatch(ctx context.Context, session interfaces.ChatSession, utterance string) dispatch.Result {
	m.mu.Lock()
	m.utterances = append(m.utterances, utterance)
	m.sessions = append(m.sessions, session.ID())
	m.mu.Unlock()

	if utterance == "tesla stock" {
		return dispatch.Result{Tool: dispatch.ToolStock, Company: "Tesla", Reply: "TSLA closed at 250.50"}
	}
	return dispatch.Result{Tool: dispatch.ToolChat, Reply: "echo: " + utterance}
}

func (m *mockRouter) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.utterances...)
}

func (m *mockRouter) FollowUp(ctx context.Context, session interfaces.ChatSession, question string) string {
	m.mu.Lock()
	m.sessions = append(m.sessions, session.ID())
	m.mu.Unlock()
	return "follow-up: " + question
}

type mockTrends struct {
	days, top int
}

func (m *mockTrends) General(days, top int) string {
	m.days, m.top = days, top
	return fmt.Sprintf("top %d terms over %d days", top, days)
}

type mockScheduler struct {
	triggered []string
}

func (m *mockScheduler) GetAllJobStatuses() []*models.JobStatus {
	return []*models.JobStatus{{Name: "refresh_top_terms", Schedule: "0 0 6 * * *"}}
}

func (m *mockScheduler) GetJobStatus(name string) (*models.JobStatus, error) {
	if name != "refresh_top_terms" {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return &models.JobStatus{Name: name}, nil
}

func (m *mockScheduler) TriggerJob(name string) error {
	m.triggered = append(m.triggered, name)
	return nil
}
