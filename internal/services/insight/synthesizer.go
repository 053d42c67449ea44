// Package insight builds the market analysis prompt and asks the model for the narrative.
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/fetch"
)

// Caveat lines listed under the Warning block
const (
	CaveatTrends = "Google Trends data missing or incomplete."
	CaveatNews   = "News data missing or incomplete."
	CaveatStock  = "Stock data missing or incomplete for some tickers."
)

// Input is everything gathered for one company analysis
type Input struct {
	Company     string
	Competitors []string
	Trends      map[string]models.TrendRecord
	News        map[string]models.NewsRecord
	Prices      map[string]models.PriceRecord
}

// Synthesizer turns gathered data into the final insight text
type Synthesizer struct {
	logger arbor.ILogger
}

// NewSynthesizer creates an insight synthesizer
func NewSynthesizer(logger arbor.ILogger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// Caveats lists the degraded sources in input
func Caveats(input Input) []string {
	var caveats []string

	trendsDegraded := len(input.Trends) == 0
	for _, r := range input.Trends {
		if r.Status != models.StatusOK {
			trendsDegraded = true
		}
	}
	if trendsDegraded {
		caveats = append(caveats, CaveatTrends)
	}

	newsDegraded := len(input.News) == 0
	for _, r := range input.News {
		if r.Status == models.StatusError {
			newsDegraded = true
		}
	}
	if newsDegraded {
		caveats = append(caveats, CaveatNews)
	}

	stockDegraded := len(input.Prices) == 0
	for _, r := range input.Prices {
		if r.Status != models.StatusOK {
			stockDegraded = true
		}
	}
	if stockDegraded {
		caveats = append(caveats, CaveatStock)
	}

	return caveats
}

// BuildPrompt renders the analysis prompt, prefixed with a Warning block when any source is degraded
func (s *Synthesizer) BuildPrompt(input Input) string {
	var sb strings.Builder

	if caveats := Caveats(input); len(caveats) > 0 {
		sb.WriteString("Warning:\n")
		for _, c := range caveats {
			fmt.Fprintf(&sb, "* %s\n", c)
		}
		sb.WriteString("\n")
	}

	competitors := "none identified"
	if len(input.Competitors) > 0 {
		competitors = strings.Join(input.Competitors, ", ")
	}
	fmt.Fprintf(&sb, "Provide a comprehensive market analysis and actionable financial suggestions for '%s', "+
		"considering its competitors: %s.\n\n", input.Company, competitors)

	sb.WriteString("Use the following data:\n\n")
	sb.WriteString("### Trends Data\n")
	sb.WriteString(FormatTrends(input.Trends))
	sb.WriteString("\n### News Data\n")
	sb.WriteString(FormatNews(input.News))
	sb.WriteString("\n### Stock Data\n")
	sb.WriteString(FormatPrices(input.Prices))

	sb.WriteString(`
Include the following sections:
1. **Market & Trend Summary**: Summarize overall market conditions and relevant trends affecting the company and its industry.
2. **Market Share & Competitive Insights**: Analyze the company's position relative to its competitors.
3. **Notable Events**: Highlight key recent news or events impacting the company.
4. **SWOT Summary**: Briefly outline Strengths, Weaknesses, Opportunities, and Threats.
5. **Actionable Financial Suggestions**: Provide concrete, practical financial advice or recommendations based on the analysis.

Ensure the response is well-structured, easy to read, and professional. If a data source is marked unavailable, say so rather than guessing.`)

	return sb.String()
}

// Synthesize sends the analysis prompt through the session. The result is never empty.
func (s *Synthesizer) Synthesize(ctx context.Context, session interfaces.ChatSession, input Input) string {
	reply, err := session.Send(ctx, s.BuildPrompt(input))
	if err != nil {
		s.logger.Error().Err(err).Str("company", input.Company).Msg("Insight generation failed")
		return fmt.Sprintf("Sorry, I could not generate the market insight for '%s' right now: %v", input.Company, err)
	}
	if strings.TrimSpace(reply) == "" {
		s.logger.Warn().Str("company", input.Company).Msg("Insight generation returned an empty reply")
		return fmt.Sprintf("Sorry, I could not generate the market insight for '%s' right now: the model returned an empty response.", input.Company)
	}
	return reply
}

// FormatTrends renders one line per keyword with its series or unavailability marker
func FormatTrends(records map[string]models.TrendRecord) string {
	if len(records) == 0 {
		return "No trend data was collected.\n"
	}

	var sb strings.Builder
	for _, key := range sortedKeys(records) {
		r := records[key]
		switch r.Status {
		case models.StatusOK:
			values := make([]string, 0, len(r.Points))
			for _, p := range r.Points {
				values = append(values, fmt.Sprintf("%s=%d", p.Date.Format("2006-01-02"), p.Value))
			}
			fmt.Fprintf(&sb, "- %s: %s\n", key, strings.Join(values, ", "))
		case models.StatusNoData:
			fmt.Fprintf(&sb, "- %s: no search interest data\n", key)
		default:
			fmt.Fprintf(&sb, "- %s: unavailable (error: %s)\n", key, r.Error)
		}
	}
	return sb.String()
}

// FormatNews renders the articles found per keyword
func FormatNews(records map[string]models.NewsRecord) string {
	if len(records) == 0 {
		return "No news data was collected.\n"
	}

	var sb strings.Builder
	for _, key := range sortedKeys(records) {
		r := records[key]
		switch r.Status {
		case models.StatusOK:
			fmt.Fprintf(&sb, "- %s:\n", key)
			for _, a := range r.Articles {
				fmt.Fprintf(&sb, "  - %s", a.Title)
				if a.Source != "" {
					fmt.Fprintf(&sb, " (%s)", a.Source)
				}
				if !a.PublishedAt.IsZero() {
					fmt.Fprintf(&sb, " [%s]", a.PublishedAt.Format("2006-01-02"))
				}
				sb.WriteString("\n")
				if a.Description != "" {
					fmt.Fprintf(&sb, "    %s\n", a.Description)
				}
			}
		case models.StatusNoData:
			fmt.Fprintf(&sb, "- %s: no articles found\n", key)
		default:
			fmt.Fprintf(&sb, "- %s: unavailable (error: %s)", key, r.Error)
			if r.Details != "" {
				fmt.Fprintf(&sb, " %s", r.Details)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatPrices renders each ticker's narrative and daily closes
func FormatPrices(records map[string]models.PriceRecord) string {
	if len(records) == 0 {
		return "No stock data: no listed tickers were resolved.\n"
	}

	var sb strings.Builder
	for _, key := range sortedKeys(records) {
		r := records[key]
		switch r.Status {
		case models.StatusOK:
			fmt.Fprintf(&sb, "- %s:\n", key)
			if r.Narrative != "" {
				fmt.Fprintf(&sb, "  %s\n", r.Narrative)
			}
			for _, line := range strings.Split(strings.TrimSpace(fetch.FormatBars(r.Bars)), "\n") {
				fmt.Fprintf(&sb, "  %s\n", line)
			}
		case models.StatusNoData:
			fmt.Fprintf(&sb, "- %s: no price history found\n", key)
		default:
			fmt.Fprintf(&sb, "- %s: unavailable (error: %s)\n", key, r.Error)
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
