// Package yahoo implements the default price provider over Yahoo Finance.
// Symbols use Yahoo's exchange suffixes (".L", ".HK", ".NS", ...).
package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Client adapts finance-go to interfaces.PriceProvider
type Client struct {
	logger   arbor.ILogger
	getQuote func(symbol string) (*finance.Quote, error)
	getBars  func(params *chart.Params) ([]*finance.ChartBar, error)
}

// NewClient creates a Yahoo Finance price provider
func NewClient(logger arbor.ILogger) *Client {
	return &Client{
		logger:   logger,
		getQuote: quote.Get,
		getBars:  fetchBars,
	}
}

func fetchBars(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)
	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// Lookup returns quote metadata for symbol, or nil when Yahoo has no such listing
func (c *Client) Lookup(ctx context.Context, symbol string) (*interfaces.SymbolInfo, error) {
	q, err := withContext(ctx, func() (*finance.Quote, error) {
		return c.getQuote(symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil || q.Symbol == "" {
		return nil, nil
	}

	return &interfaces.SymbolInfo{
		Symbol:   q.Symbol,
		Name:     q.ShortName,
		Exchange: q.FullExchangeName,
		Currency: q.CurrencyID,
	}, nil
}

// History returns daily closes between start and end, oldest first
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	raw, err := withContext(ctx, func() ([]*finance.ChartBar, error) {
		return c.getBars(params)
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	bars := make([]models.PriceBar, 0, len(raw))
	for _, b := range raw {
		if b == nil {
			continue
		}
		price, _ := b.AdjClose.Float64()
		if price == 0 {
			price, _ = b.Close.Float64()
		}
		bars = append(bars, models.PriceBar{
			Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Close:  price,
			Volume: int64(b.Volume),
		})
	}

	c.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched Yahoo price history")
	return bars, nil
}

// withContext runs a blocking finance-go call, returning early if ctx is done.
// finance-go has no context support, so an abandoned call finishes in the background.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}
