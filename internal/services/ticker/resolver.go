// Package ticker resolves company names to listed stock symbols.
package ticker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

const resolvePrompt = `You are a financial expert. What is the most common stock ticker symbol for the company '%s'?
If it is a public company, provide only the ticker symbol (like 'TSLA').
If it is private, respond with 'PRIVATE'.
If you cannot confidently identify it, respond with 'UNKNOWN'.`

// Resolver asks the model for a symbol and confirms it against the price provider
type Resolver struct {
	prices   interfaces.PriceProvider
	suffixes []string
	logger   arbor.ILogger
}

// NewResolver creates a ticker resolver
func NewResolver(prices interfaces.PriceProvider, config *common.TickerConfig, logger arbor.ILogger) *Resolver {
	return &Resolver{
		prices:   prices,
		suffixes: config.ExchangeSuffixes,
		logger:   logger,
	}
}

// Resolve returns the first candidate symbol the price provider confirms.
// It never fails: model and provider errors produce Found=false.
func (r *Resolver) Resolve(ctx context.Context, session interfaces.ChatSession, company string) models.TickerResolution {
	result := models.TickerResolution{Company: company}

	name := strings.ToLower(strings.TrimSpace(company))
	reply, err := session.Send(ctx, fmt.Sprintf(resolvePrompt, name))
	if err != nil {
		r.logger.Warn().Err(err).Str("company", company).Msg("Ticker lookup failed")
		return result
	}

	symbol := common.NormalizeSymbol(reply)
	result.Candidate = symbol
	if common.IsNoListingReply(symbol) || !common.IsPlausibleSymbol(symbol) {
		r.logger.Debug().Str("company", company).Str("reply", symbol).Msg("No listed ticker suggested")
		return result
	}

	candidates := append([]string{symbol}, common.SuffixVariants(symbol, r.suffixes)...)
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return result
		}

		info, err := r.prices.Lookup(ctx, candidate)
		if err != nil {
			r.logger.Debug().Err(err).Str("candidate", candidate).Msg("Ticker candidate lookup failed")
			continue
		}
		if info == nil || !strings.EqualFold(info.Symbol, candidate) {
			continue
		}

		result.Symbol = candidate
		result.Found = true
		if i > 0 {
			result.Variant = true
			r.logger.Warn().
				Str("company", company).
				Str("suggested", symbol).
				Str("accepted", candidate).
				Msg("Ticker confirmed only with an exchange suffix")
		}
		r.logger.Debug().Str("company", company).Str("ticker", candidate).Msg("Ticker resolved")
		return result
	}

	r.logger.Info().Str("company", company).Str("candidate", symbol).Msg("No candidate ticker confirmed")
	return result
}
