package fetch

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/gnews"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/transform"
)

// NewsFetcher collects recent articles per keyword
type NewsFetcher struct {
	provider  interfaces.NewsProvider
	transform *transform.Service
	caller    *caller
	logger    arbor.ILogger
}

// NewNewsFetcher creates a news fetcher with the [news] rate and retry policy
func NewNewsFetcher(provider interfaces.NewsProvider, transformer *transform.Service, limits common.ProviderLimits, logger arbor.ILogger) *NewsFetcher {
	return &NewsFetcher{
		provider:  provider,
		transform: transformer,
		caller:    newCaller("news", limits, logger),
		logger:    logger,
	}
}

// Fetch returns one record per distinct keyword. Failures are recorded, never returned.
func (f *NewsFetcher) Fetch(ctx context.Context, keywords []string) map[string]models.NewsRecord {
	records := make(map[string]models.NewsRecord, len(keywords))

	for _, keyword := range distinct(keywords) {
		articles, err := call(ctx, f.caller, keyword, func(ctx context.Context) ([]models.Article, error) {
			return f.provider.Search(ctx, keyword)
		})
		if err == nil && f.transform != nil {
			articles = f.transform.CleanArticles(articles)
		}

		record := models.NewsRecord{Key: keyword}
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("keyword", keyword).Msg("News fetch failed")
			record.Status = models.StatusError
			record.Error = err.Error()

			var apiErr *gnews.APIError
			if errors.As(err, &apiErr) {
				record.Details = apiErr.Body
			}
		case len(articles) == 0:
			record.Status = models.StatusNoData
		default:
			record.Status = models.StatusOK
			record.Articles = articles
		}
		records[keyword] = record
	}

	return records
}
