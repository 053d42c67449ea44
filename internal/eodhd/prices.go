package eodhd

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// GetEOD retrieves daily end-of-day prices for symbol (CODE.EXCHANGE) between from and to, oldest first.
func (c *Client) GetEOD(ctx context.Context, symbol string, from, to time.Time) (EODResponse, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	if !from.IsZero() {
		params.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		params.Set("to", to.Format("2006-01-02"))
	}

	var result EODResponse
	if err := c.get(ctx, "/eod/"+symbol, params, &result); err != nil {
		return nil, err
	}

	for i := range result {
		if t, err := time.Parse("2006-01-02", result[i].DateStr); err == nil {
			result[i].Date = t
		}
	}

	return result, nil
}

// GetRealTimeQuote retrieves the delayed quote for symbol (CODE.EXCHANGE).
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*RealTimeQuote, error) {
	var result RealTimeQuote
	if err := c.get(ctx, "/real-time/"+symbol, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lookup implements interfaces.PriceProvider. symbol is Yahoo-style ("VOD.L");
// the returned Symbol echoes it when EODHD confirms the listing.
func (c *Client) Lookup(ctx context.Context, symbol string) (*interfaces.SymbolInfo, error) {
	code := common.EODHDSymbol(symbol)

	quote, err := c.GetRealTimeQuote(ctx, code)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	if !quote.Listed() || !strings.EqualFold(quote.Code, code) {
		return nil, nil
	}

	info := &interfaces.SymbolInfo{Symbol: strings.ToUpper(symbol)}
	if idx := strings.LastIndex(code, "."); idx > 0 {
		info.Exchange = code[idx+1:]
	}
	return info, nil
}

// History implements interfaces.PriceProvider
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	eod, err := c.GetEOD(ctx, common.EODHDSymbol(symbol), start, end)
	if err != nil {
		return nil, err
	}

	bars := make([]models.PriceBar, 0, len(eod))
	for _, d := range eod {
		price := d.AdjustedClose
		if price == 0 {
			price = d.Close
		}
		bars = append(bars, models.PriceBar{Date: d.Date, Close: price, Volume: d.Volume})
	}
	return bars, nil
}
