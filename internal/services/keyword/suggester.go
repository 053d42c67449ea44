// Package keyword picks search keywords for trend and news lookups.
package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
)

const keywordPrompt = `You are an expert in online search optimization.
What is the best single keyword to search Google Trends and News for the input '%s'?
Return only the keyword.`

// Suggester asks the model for the best search keyword
type Suggester struct {
	logger arbor.ILogger
}

// NewSuggester creates a keyword suggester
func NewSuggester(logger arbor.ILogger) *Suggester {
	return &Suggester{logger: logger}
}

// Suggest returns the model's keyword for input, or input itself when the reply is empty or the call fails
func (s *Suggester) Suggest(ctx context.Context, session interfaces.ChatSession, input string) string {
	input = strings.TrimSpace(input)

	reply, err := session.Send(ctx, fmt.Sprintf(keywordPrompt, input))
	if err != nil {
		s.logger.Warn().Err(err).Str("input", input).Msg("Keyword suggestion failed, using input")
		return input
	}

	if keyword := Clean(reply); keyword != "" {
		return keyword
	}
	return input
}

// Clean reduces a model reply to its first non-empty line without quotes or markup
func Clean(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`\"'*."))
		if line != "" {
			return line
		}
	}
	return ""
}
