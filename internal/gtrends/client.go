// Package gtrends provides search-interest series from Google Trends.
package gtrends

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/groovili/gogtrends"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
)

const timeseriesWidget = "TIMESERIES"

// Client fetches interest-over-time series for single keywords
type Client struct {
	timeframe string
	geo       string
	language  string
	logger    arbor.ILogger

	explore  func(ctx context.Context, req *gogtrends.ExploreRequest, hl string) ([]*gogtrends.ExploreWidget, error)
	interest func(ctx context.Context, widget *gogtrends.ExploreWidget, hl string) ([]*gogtrends.Timeline, error)
}

// NewClient creates a Google Trends client from the trends config section
func NewClient(config *common.TrendsConfig, logger arbor.ILogger) *Client {
	return &Client{
		timeframe: config.Timeframe,
		geo:       config.Geo,
		language:  config.Language,
		logger:    logger,
		explore: func(ctx context.Context, req *gogtrends.ExploreRequest, hl string) ([]*gogtrends.ExploreWidget, error) {
			return gogtrends.Explore(ctx, req, hl)
		},
		interest: gogtrends.InterestOverTime,
	}
}

// InterestOverTime implements interfaces.TrendsProvider
func (c *Client) InterestOverTime(ctx context.Context, keyword string) ([]models.TrendPoint, error) {
	widgets, err := c.explore(ctx, &gogtrends.ExploreRequest{
		ComparisonItems: []*gogtrends.ComparisonItem{
			{Keyword: keyword, Geo: c.geo, Time: c.timeframe},
		},
		Category: 0,
		Property: "",
	}, c.language)
	if err != nil {
		return nil, fmt.Errorf("trends explore %q: %w", keyword, err)
	}

	var widget *gogtrends.ExploreWidget
	for _, w := range widgets {
		if w != nil && w.ID == timeseriesWidget {
			widget = w
			break
		}
	}
	if widget == nil {
		return nil, nil
	}

	timeline, err := c.interest(ctx, widget, c.language)
	if err != nil {
		return nil, fmt.Errorf("trends interest over time %q: %w", keyword, err)
	}

	points := make([]models.TrendPoint, 0, len(timeline))
	for _, row := range timeline {
		if row == nil || len(row.Value) == 0 {
			continue
		}
		seconds, err := strconv.ParseInt(row.Time, 10, 64)
		if err != nil {
			c.logger.Debug().Str("time", row.Time).Msg("Skipping trends row with unparseable time")
			continue
		}
		points = append(points, models.TrendPoint{
			Date:  time.Unix(seconds, 0).UTC(),
			Value: row.Value[0],
		})
	}

	return points, nil
}
