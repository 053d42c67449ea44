package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/competitors"
	"github.com/ternarybob/marketlens/internal/services/fetch"
	"github.com/ternarybob/marketlens/internal/services/keyword"
	"github.com/ternarybob/marketlens/internal/services/ticker"
	"github.com/ternarybob/marketlens/internal/services/toptrends"
)

const classifyPrompt = `You are an intelligent API router for a market analysis AI.
Your goal is to accurately determine which tool is most appropriate based on the user's request.
Carefully read the user's input and the description of each tool.

If the user asks for general trends, without mentioning a specific company, use get_general_trends.
If the user mentions a specific company (e.g., 'Apple trends', 'trends for Tesla'), use get_company_trends.

Respond ONLY with the tool name, exactly as written. If no specific tool is perfect, choose 'chat'.

Available tools:
%s
User input:
"%s"

Tool to use:`

const extractPrompt = `Extract the primary company name from the following user query. If no specific company is mentioned, just return "general".
User query: "%s"
Company name:`

const followUpPrompt = `You're a helpful assistant in a market analysis AI chatbot.

The user asked a follow-up question: "%s"

Reply naturally in a friendly tone. If the question is vague, ask what exactly they want (e.g., stock, news, or trends).
Don't return JSON, just a natural chatbot response.
Avoid repeating the user question unless it's helpful.`

// Analyzer runs a full company analysis
type Analyzer interface {
	Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight
}

// TopTerms serves the warehouse top terms views
type TopTerms interface {
	General(days, top int) string
	ForCompany(ctx context.Context, company string, limit int) string
}

// Result is the outcome of one dispatched utterance
type Result struct {
	Tool    Tool            `json:"tool"`
	Company string          `json:"company,omitempty"`
	Reply   string          `json:"reply"`
	Insight *models.Insight `json:"insight,omitempty"` // Set for get_insight
}

// Dispatcher classifies utterances and runs the selected tool
type Dispatcher struct {
	analysis    Analyzer
	topTerms    TopTerms
	tickers     *ticker.Resolver
	competitors *competitors.Suggester
	keywords    *keyword.Suggester
	news        *fetch.NewsFetcher
	prices      *fetch.PriceFetcher
	logger      arbor.ILogger
}

// NewDispatcher creates a tool dispatcher
func NewDispatcher(
	analysis Analyzer,
	topTerms TopTerms,
	tickers *ticker.Resolver,
	competitorSuggester *competitors.Suggester,
	keywords *keyword.Suggester,
	news *fetch.NewsFetcher,
	prices *fetch.PriceFetcher,
	logger arbor.ILogger,
) *Dispatcher {
	return &Dispatcher{
		analysis:    analysis,
		topTerms:    topTerms,
		tickers:     tickers,
		competitors: competitorSuggester,
		keywords:    keywords,
		news:        news,
		prices:      prices,
		logger:      logger,
	}
}

// Dispatch classifies utterance and runs the chosen tool. It never fails; errors become reply text.
func (d *Dispatcher) Dispatch(ctx context.Context, session interfaces.ChatSession, utterance string) Result {
	utterance = strings.TrimSpace(utterance)
	tool := d.Classify(ctx, session, utterance)

	d.logger.Info().
		Str("session_id", session.ID()).
		Str("tool", string(tool)).
		Msg("Dispatching query")

	return d.Run(ctx, session, tool, utterance)
}

// Classify asks the session which tool fits utterance. Unknown replies and errors select chat.
func (d *Dispatcher) Classify(ctx context.Context, session interfaces.ChatSession, utterance string) Tool {
	reply, err := session.Send(ctx, fmt.Sprintf(classifyPrompt, toolList(), utterance))
	if err != nil {
		d.logger.Warn().Err(err).Msg("Tool classification failed, using chat")
		return ToolChat
	}

	tool, ok := ParseTool(reply)
	if !ok {
		d.logger.Debug().Str("reply", reply).Msg("Unrecognised tool name, using chat")
	}
	return tool
}

// Run executes tool for input. Company tools extract the company from input with one extra session call.
func (d *Dispatcher) Run(ctx context.Context, session interfaces.ChatSession, tool Tool, input string) Result {
	switch tool {
	case ToolStock:
		company := d.extractCompany(ctx, session, input)
		if company == "" {
			company = input
		}
		return Result{Tool: tool, Company: company, Reply: d.stock(ctx, session, company)}

	case ToolGeneralTrends:
		return Result{Tool: tool, Reply: d.topTerms.General(toptrends.DefaultDays, toptrends.DefaultTopTerms)}

	case ToolCompanyTrends:
		company := d.extractCompany(ctx, session, input)
		if company == "" {
			return Result{Tool: tool, Reply: d.topTerms.General(toptrends.DefaultDays, toptrends.DefaultTopTerms)}
		}
		return Result{Tool: tool, Company: company, Reply: d.topTerms.ForCompany(ctx, company, toptrends.DefaultCompanyLimit)}

	case ToolNews:
		kw := d.keywords.Suggest(ctx, session, input)
		return Result{Tool: tool, Company: kw, Reply: FormatNews(d.news.Fetch(ctx, []string{kw}))}

	case ToolCompetitors:
		company := d.extractCompany(ctx, session, input)
		if company == "" {
			return Result{Tool: tool, Reply: "Please specify the company for which you want to find competitors."}
		}
		names := d.competitors.Suggest(ctx, session, company)
		if len(names) == 0 {
			return Result{Tool: tool, Company: company, Reply: fmt.Sprintf("No competitors found for `%s`.", company)}
		}
		reply := fmt.Sprintf("**Top Competitors of `%s`**:\n- %s", company, strings.Join(names, "\n- "))
		return Result{Tool: tool, Company: company, Reply: reply}

	case ToolInsight:
		company := d.extractCompany(ctx, session, input)
		if company == "" {
			return Result{Tool: tool, Reply: "Please specify the company for which you want a market insight."}
		}
		result := d.analysis.Start(ctx, session, company)
		return Result{Tool: tool, Company: company, Reply: result.Text, Insight: result}

	default:
		return Result{Tool: ToolChat, Reply: d.FollowUp(ctx, session, input)}
	}
}

// FollowUp answers a free-form question in the context of the conversation
func (d *Dispatcher) FollowUp(ctx context.Context, session interfaces.ChatSession, question string) string {
	reply, err := session.Send(ctx, fmt.Sprintf(followUpPrompt, strings.TrimSpace(question)))
	if err != nil {
		d.logger.Warn().Err(err).Str("session_id", session.ID()).Msg("Follow-up failed")
		return fmt.Sprintf("Sorry, I ran into a problem answering that: %v", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "Sorry, I don't have an answer for that. Could you say whether you're after stock, news or trends?"
	}
	return reply
}

// extractCompany returns the company named in query, or "" when none is named
func (d *Dispatcher) extractCompany(ctx context.Context, session interfaces.ChatSession, query string) string {
	reply, err := session.Send(ctx, fmt.Sprintf(extractPrompt, query))
	if err != nil {
		d.logger.Warn().Err(err).Msg("Company extraction failed")
		return ""
	}

	company := keyword.Clean(reply)
	if strings.EqualFold(company, "general") {
		return ""
	}
	return company
}

func (d *Dispatcher) stock(ctx context.Context, session interfaces.ChatSession, company string) string {
	resolved := d.tickers.Resolve(ctx, session, company)
	if !resolved.Found {
		return "Couldn't determine a valid public stock ticker for that. Please provide an exact ticker or public company name."
	}

	record := d.prices.Fetch(ctx, []string{resolved.Symbol})[resolved.Symbol]
	switch record.Status {
	case models.StatusOK:
		record = d.prices.Narrate(ctx, session, record)
		if record.Narrative != "" {
			return record.Narrative
		}
		return fmt.Sprintf("**Stock data for %s:**\n%s", record.Key, strings.TrimSpace(fetch.FormatBars(record.Bars)))
	case models.StatusNoData:
		return fmt.Sprintf("No stock data found for %s.", resolved.Symbol)
	default:
		return fmt.Sprintf("Error fetching stock data for %s: %s. It might be a private company, incorrect ticker, or no data available.", resolved.Symbol, record.Error)
	}
}

// FormatNews renders news records as markdown link lists, or one error line per failed key
func FormatNews(records map[string]models.NewsRecord) string {
	var sb strings.Builder
	for _, key := range sortedKeys(records) {
		r := records[key]
		switch r.Status {
		case models.StatusOK:
			fmt.Fprintf(&sb, "**News for '%s'**:\n", key)
			for i, a := range r.Articles {
				if i == 5 {
					break
				}
				fmt.Fprintf(&sb, "- [%s](%s)\n", a.Title, a.URL)
			}
			sb.WriteString("\n")
		case models.StatusNoData:
			fmt.Fprintf(&sb, "**News for '%s'**: no recent articles found.\n\n", key)
		default:
			fmt.Fprintf(&sb, "**News for '%s'**: Error: %s", key, r.Error)
			if r.Details != "" {
				fmt.Fprintf(&sb, " - %s", r.Details)
			}
			sb.WriteString("\n\n")
		}
	}

	if out := strings.TrimSpace(sb.String()); out != "" {
		return out
	}
	return "No news available for that query."
}

func sortedKeys(m map[string]models.NewsRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
