package handlers

import (
	"context"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
	"github.com/ternarybob/marketlens/internal/services/report"
)

// Analyzer runs the full company analysis behind /start_chat
type Analyzer interface {
	Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight
}

// QueryRouter classifies free-text queries and answers follow-ups
type QueryRouter interface {
	Dispatch(ctx context.Context, session interfaces.ChatSession, utterance string) dispatch.Result
	FollowUp(ctx context.Context, session interfaces.ChatSession, question string) string
}

// GeneralTrends formats the warehouse top terms snapshot
type GeneralTrends interface {
	General(days, top int) string
}

// ReportRenderer renders markdown documents
type ReportRenderer interface {
	Render(markdown, title string, format report.Format) ([]byte, error)
}

// JobScheduler exposes the background job registry
type JobScheduler interface {
	GetAllJobStatuses() []*models.JobStatus
	GetJobStatus(name string) (*models.JobStatus, error)
	TriggerJob(name string) error
}
