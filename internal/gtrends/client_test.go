package gtrends

import (
	"context"
	"errors"
	"testing"

	"github.com/groovili/gogtrends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
)

func newTestClient() *Client {
	return NewClient(&common.NewDefaultConfig().Trends, arbor.NewLogger())
}

func TestInterestOverTime(t *testing.T) {
	c := newTestClient()
	c.explore = func(ctx context.Context, req *gogtrends.ExploreRequest, hl string) ([]*gogtrends.ExploreWidget, error) {
		require.Len(t, req.ComparisonItems, 1)
		assert.Equal(t, "Tesla", req.ComparisonItems[0].Keyword)
		assert.Equal(t, "US", req.ComparisonItems[0].Geo)
		assert.Equal(t, "today 3-m", req.ComparisonItems[0].Time)
		return []*gogtrends.ExploreWidget{{ID: "GEO_MAP"}, {ID: "TIMESERIES"}}, nil
	}
	c.interest = func(ctx context.Context, widget *gogtrends.ExploreWidget, hl string) ([]*gogtrends.Timeline, error) {
		assert.Equal(t, "TIMESERIES", widget.ID)
		return []*gogtrends.Timeline{
			{Time: "1735689600", Value: []int{42}},
			{Time: "garbage", Value: []int{10}},
			{Time: "1736294400", Value: []int{}},
			{Time: "1736899200", Value: []int{100}},
		}, nil
	}

	points, err := c.InterestOverTime(context.Background(), "Tesla")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 42, points[0].Value)
	assert.Equal(t, 2025, points[0].Date.Year())
	assert.Equal(t, 100, points[1].Value)
}

func TestInterestOverTime_NoTimeseriesWidget(t *testing.T) {
	c := newTestClient()
	c.explore = func(ctx context.Context, req *gogtrends.ExploreRequest, hl string) ([]*gogtrends.ExploreWidget, error) {
		return []*gogtrends.ExploreWidget{{ID: "RELATED_QUERIES"}}, nil
	}

	points, err := c.InterestOverTime(context.Background(), "Obscure Co")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestInterestOverTime_ExploreError(t *testing.T) {
	c := newTestClient()
	c.explore = func(ctx context.Context, req *gogtrends.ExploreRequest, hl string) ([]*gogtrends.ExploreWidget, error) {
		return nil, errors.New("429 too many requests")
	}

	_, err := c.InterestOverTime(context.Background(), "Tesla")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tesla")
	assert.Contains(t, err.Error(), "429")
}
