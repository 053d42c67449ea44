package fetch

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// TrendFetcher collects search-interest series per keyword
type TrendFetcher struct {
	provider interfaces.TrendsProvider
	caller   *caller
	logger   arbor.ILogger
}

// NewTrendFetcher creates a trend fetcher with the [trends] rate and retry policy
func NewTrendFetcher(provider interfaces.TrendsProvider, limits common.ProviderLimits, logger arbor.ILogger) *TrendFetcher {
	return &TrendFetcher{
		provider: provider,
		caller:   newCaller("trends", limits, logger),
		logger:   logger,
	}
}

// Fetch returns one record per distinct keyword. Failures are recorded, never returned.
func (f *TrendFetcher) Fetch(ctx context.Context, keywords []string) map[string]models.TrendRecord {
	records := make(map[string]models.TrendRecord, len(keywords))

	for _, keyword := range distinct(keywords) {
		points, err := call(ctx, f.caller, keyword, func(ctx context.Context) ([]models.TrendPoint, error) {
			return f.provider.InterestOverTime(ctx, keyword)
		})

		record := models.TrendRecord{Key: keyword}
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("keyword", keyword).Msg("Trend fetch failed")
			record.Status = models.StatusError
			record.Error = err.Error()
		case len(points) == 0:
			record.Status = models.StatusNoData
		default:
			record.Status = models.StatusOK
			record.Points = points
		}
		records[keyword] = record
	}

	return records
}
