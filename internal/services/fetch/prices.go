package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// PriceFetcher collects recent daily closes per ticker
type PriceFetcher struct {
	provider interfaces.PriceProvider
	period   time.Duration
	caller   *caller
	logger   arbor.ILogger
	now      func() time.Time
}

// NewPriceFetcher creates a price fetcher with the [prices] rate, retry and period settings
func NewPriceFetcher(provider interfaces.PriceProvider, config *common.PricesConfig, logger arbor.ILogger) *PriceFetcher {
	period, err := ParsePeriod(config.Period)
	if err != nil {
		logger.Warn().Err(err).Str("period", config.Period).Msg("Invalid price period, using 7d")
		period = 7 * 24 * time.Hour
	}

	return &PriceFetcher{
		provider: provider,
		period:   period,
		caller:   newCaller("prices", config.ProviderLimits, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch returns one record per distinct ticker. Failures are recorded, never returned.
func (f *PriceFetcher) Fetch(ctx context.Context, tickers []string) map[string]models.PriceRecord {
	records := make(map[string]models.PriceRecord, len(tickers))

	end := f.now().UTC()
	start := end.Add(-f.period)

	for _, ticker := range distinct(tickers) {
		bars, err := call(ctx, f.caller, ticker, func(ctx context.Context) ([]models.PriceBar, error) {
			return f.provider.History(ctx, ticker, start, end)
		})

		record := models.PriceRecord{Key: ticker}
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price fetch failed")
			record.Status = models.StatusError
			record.Error = err.Error()
		case len(bars) == 0:
			record.Status = models.StatusNoData
		default:
			record.Status = models.StatusOK
			record.Bars = bars
		}
		records[ticker] = record
	}

	return records
}

// Narrate asks the session to describe the price action in prose and stores it on the record.
// Records without data are returned unchanged.
func (f *PriceFetcher) Narrate(ctx context.Context, session interfaces.ChatSession, record models.PriceRecord) models.PriceRecord {
	if record.Status != models.StatusOK {
		return record
	}

	prompt := fmt.Sprintf("Here are the recent daily closing prices for %s:\n%s\n"+
		"In one short paragraph, describe how the stock moved over this period, "+
		"noting the overall direction, the largest daily move and any unusual volume.",
		record.Key, FormatBars(record.Bars))

	reply, err := session.Send(ctx, prompt)
	if err != nil {
		f.logger.Warn().Err(err).Str("ticker", record.Key).Msg("Price narration failed")
		return record
	}

	record.Narrative = strings.TrimSpace(reply)
	return record
}

// FormatBars renders bars as one "date: close (volume)" line each
func FormatBars(bars []models.PriceBar) string {
	var sb strings.Builder
	for _, bar := range bars {
		fmt.Fprintf(&sb, "- %s: %.2f (volume %d)\n", bar.Date.Format("2006-01-02"), bar.Close, bar.Volume)
	}
	return sb.String()
}

// ParsePeriod parses a history window such as "7d", "3mo", "1y" or a Go duration
func ParsePeriod(period string) (time.Duration, error) {
	period = strings.TrimSpace(strings.ToLower(period))
	if period == "" {
		return 0, fmt.Errorf("empty period")
	}

	const day = 24 * time.Hour
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"mo", 30 * day},
		{"wk", 7 * day},
		{"d", day},
		{"y", 365 * day},
	}
	for _, unit := range units {
		if !strings.HasSuffix(period, unit.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(period, unit.suffix))
		if err != nil || n <= 0 {
			break
		}
		return time.Duration(n) * unit.size, nil
	}

	d, err := time.ParseDuration(period)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid period '%s'", period)
	}
	return d, nil
}
