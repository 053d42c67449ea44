// Package toptrends serves the daily top search terms snapshot loaded from the warehouse.
package toptrends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Defaults for the general and company views
const (
	DefaultDays         = 3
	DefaultTopTerms     = 10
	DefaultCompanyLimit = 5
	companyWindowDays   = 7
)

const relevancePrompt = `Evaluate the relationship between the following trend and company.
Trend: "%s"
Company: "%s"

Does this trend directly relate to the company? Consider news, products, leadership, market position, or public perception.
Respond with 'YES: [short explanation]' if related, or 'NO' if not.`

// Service holds the in-memory snapshot and refreshes it from the warehouse
type Service struct {
	warehouse interfaces.Warehouse // nil when the warehouse is disabled
	storage   interfaces.SnapshotStorage
	llm       interfaces.LLMProvider
	config    *common.WarehouseConfig
	logger    arbor.ILogger
	now       func() time.Time

	mu    sync.RWMutex
	terms []models.TopTerm // ordered newest day first, rank ascending
}

// NewService creates the top terms service. warehouse may be nil.
func NewService(warehouse interfaces.Warehouse, storage interfaces.SnapshotStorage, llm interfaces.LLMProvider, config *common.WarehouseConfig, logger arbor.ILogger) *Service {
	return &Service{
		warehouse: warehouse,
		storage:   storage,
		llm:       llm,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Load fills the snapshot from the warehouse, falling back to the last stored snapshot.
// It never fails; an unavailable snapshot leaves the general view reporting no data.
func (s *Service) Load(ctx context.Context) {
	if s.warehouse != nil {
		err := s.Refresh(ctx)
		if err == nil {
			return
		}
		s.logger.Warn().Err(err).Msg("Warehouse unavailable, using stored top terms snapshot")
	}

	if s.storage == nil {
		return
	}

	stored, err := s.storage.GetTopTerms(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read stored top terms snapshot")
		return
	}
	s.set(stored)
	s.logger.Info().Int("terms", len(stored)).Msg("Loaded stored top terms snapshot")
}

// Refresh queries the warehouse and replaces the snapshot
func (s *Service) Refresh(ctx context.Context) error {
	if s.warehouse == nil {
		return fmt.Errorf("warehouse is not configured")
	}

	lookback := s.config.LookbackDays
	if lookback <= 0 {
		lookback = 14
	}
	since := s.now().UTC().AddDate(0, 0, -lookback)

	ctx, cancel := context.WithTimeout(ctx, common.ParseDurationOr(s.config.Timeout, time.Minute))
	defer cancel()

	terms, err := s.warehouse.TopTerms(ctx, since, s.config.MaxRank)
	if err != nil {
		return fmt.Errorf("failed to query top terms: %w", err)
	}

	if s.storage != nil {
		if err := s.storage.ReplaceTopTerms(ctx, terms); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to store top terms snapshot")
		}
	}

	s.set(terms)
	s.logger.Info().Int("terms", len(terms)).Str("since", since.Format("2006-01-02")).Msg("Refreshed top terms snapshot")
	return nil
}

func (s *Service) set(terms []models.TopTerm) {
	sorted := make([]models.TopTerm, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Day.Equal(sorted[j].Day) {
			return sorted[i].Day.After(sorted[j].Day)
		}
		return sorted[i].Rank < sorted[j].Rank
	})

	s.mu.Lock()
	s.terms = sorted
	s.mu.Unlock()
}

// Terms returns a copy of the snapshot, newest day first
func (s *Service) Terms() []models.TopTerm {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TopTerm, len(s.terms))
	copy(out, s.terms)
	return out
}

// recent returns the snapshot rows within days of the latest day, plus that latest day
func (s *Service) recent(days int) ([]models.TopTerm, time.Time) {
	terms := s.Terms()
	if len(terms) == 0 {
		return nil, time.Time{}
	}

	latest := terms[0].Day
	cutoff := latest.AddDate(0, 0, -(days - 1))

	var out []models.TopTerm
	for _, t := range terms {
		if !t.Day.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, latest
}

// General formats the top terms of the most recent days, newest first
func (s *Service) General(days, top int) string {
	if days <= 0 {
		days = DefaultDays
	}
	if top <= 0 {
		top = DefaultTopTerms
	}

	recent, _ := s.recent(days)
	if len(recent) == 0 {
		return "Trend data is not available. The top search terms snapshot could not be loaded."
	}

	var sb strings.Builder
	sb.WriteString("**Latest Google Trends - Top Terms**:\n")

	var current string
	count := 0
	for _, t := range recent {
		day := t.Day.Format("2006-01-02")
		if day != current {
			current = day
			count = 0
			fmt.Fprintf(&sb, "\n**%s**:\n", day)
		}
		if count == top {
			continue
		}
		count++
		fmt.Fprintf(&sb, "  %d. %s\n", count, t.Term)
	}

	return strings.TrimSpace(sb.String())
}

// ForCompany asks the model which recent top terms relate to company and formats up to limit of them
func (s *Service) ForCompany(ctx context.Context, company string, limit int) string {
	if limit <= 0 {
		limit = DefaultCompanyLimit
	}

	recent, _ := s.recent(companyWindowDays)
	if len(recent) == 0 {
		return "Trend data for company analysis is not available."
	}

	type related struct {
		term   string
		reason string
	}
	var found []related
	checked := make(map[string]bool)

	for _, t := range recent {
		if ctx.Err() != nil {
			break
		}

		key := strings.ToLower(t.Term)
		if checked[key] {
			continue
		}
		checked[key] = true

		if len(t.Term) < 3 && !strings.EqualFold(t.Term, company) {
			continue
		}

		reason, ok := s.relates(ctx, t.Term, company)
		if !ok {
			continue
		}
		found = append(found, related{term: t.Term, reason: reason})
		if len(found) >= limit {
			break
		}
	}

	if len(found) == 0 {
		return fmt.Sprintf("No significant Google Trends found directly related to '%s' in recent data.", company)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trends related to **'%s'**:\n\n", company)
	for _, r := range found {
		fmt.Fprintf(&sb, "- **%s**: %s\n", r.term, r.reason)
	}
	return strings.TrimSpace(sb.String())
}

// relates runs a stateless relevance check so the conversation history is not flooded
func (s *Service) relates(ctx context.Context, term, company string) (string, bool) {
	resp, err := s.llm.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages: []interfaces.Message{
			{Role: models.RoleUser, Content: fmt.Sprintf(relevancePrompt, term, company)},
		},
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("term", term).Str("company", company).Msg("Relevance check failed")
		return "", false
	}

	answer := strings.TrimSpace(resp.Text)
	if len(answer) < 4 || !strings.EqualFold(answer[:4], "yes:") {
		return "", false
	}
	return strings.TrimSpace(answer[4:]), true
}
