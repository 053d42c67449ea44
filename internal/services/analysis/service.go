// Package analysis runs the full company analysis: tickers, competitors, keywords, data fetch and synthesis.
package analysis

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/competitors"
	"github.com/ternarybob/marketlens/internal/services/fetch"
	"github.com/ternarybob/marketlens/internal/services/insight"
	"github.com/ternarybob/marketlens/internal/services/keyword"
	"github.com/ternarybob/marketlens/internal/services/ticker"
)

// Service orchestrates a company analysis over one conversation session
type Service struct {
	tickers     *ticker.Resolver
	competitors *competitors.Suggester
	keywords    *keyword.Suggester
	trends      *fetch.TrendFetcher
	news        *fetch.NewsFetcher
	prices      *fetch.PriceFetcher
	synthesizer *insight.Synthesizer
	logger      arbor.ILogger
}

// NewService creates the analysis service
func NewService(
	tickers *ticker.Resolver,
	competitorSuggester *competitors.Suggester,
	keywords *keyword.Suggester,
	trends *fetch.TrendFetcher,
	news *fetch.NewsFetcher,
	prices *fetch.PriceFetcher,
	synthesizer *insight.Synthesizer,
	logger arbor.ILogger,
) *Service {
	return &Service{
		tickers:     tickers,
		competitors: competitorSuggester,
		keywords:    keywords,
		trends:      trends,
		news:        news,
		prices:      prices,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Start runs the analysis for company. Every step degrades rather than failing,
// so an insight is always returned.
func (s *Service) Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight {
	start := time.Now()
	s.logger.Info().Str("company", company).Str("session_id", session.ID()).Msg("Starting analysis")

	primary := s.tickers.Resolve(ctx, session, company)
	rivals := s.competitors.Suggest(ctx, session, company)

	names := append([]string{company}, rivals...)
	keywords := make(map[string]string, len(names))
	keywordList := make([]string, 0, len(names))
	for _, name := range names {
		kw := s.keywords.Suggest(ctx, session, name)
		keywords[name] = kw
		keywordList = append(keywordList, kw)
	}

	tickers := make(map[string]string, len(names))
	if primary.Found {
		tickers[company] = primary.Symbol
	}
	for _, rival := range rivals {
		if resolved := s.tickers.Resolve(ctx, session, rival); resolved.Found {
			tickers[rival] = resolved.Symbol
		}
	}

	symbols := make([]string, 0, len(tickers))
	for _, name := range names {
		if symbol, ok := tickers[name]; ok {
			symbols = append(symbols, symbol)
		}
	}

	trends := s.trends.Fetch(ctx, keywordList)
	news := s.news.Fetch(ctx, keywordList)
	prices := s.prices.Fetch(ctx, symbols)
	for _, symbol := range symbols {
		if record, ok := prices[symbol]; ok && record.Narrative == "" {
			prices[symbol] = s.prices.Narrate(ctx, session, record)
		}
	}

	text := s.synthesizer.Synthesize(ctx, session, insight.Input{
		Company:     company,
		Competitors: rivals,
		Trends:      trends,
		News:        news,
		Prices:      prices,
	})

	s.logger.Info().
		Str("company", company).
		Int("competitors", len(rivals)).
		Int("tickers", len(symbols)).
		Dur("duration", time.Since(start)).
		Msg("Analysis complete")

	return &models.Insight{
		Company:     company,
		Ticker:      primary,
		Competitors: rivals,
		Keywords:    keywords,
		Tickers:     tickers,
		Text:        text,
	}
}
