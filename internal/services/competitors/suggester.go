// Package competitors suggests direct competitors of a company.
package competitors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
)

// MaxCompetitors is the number of competitors requested and returned
const MaxCompetitors = 3

const suggestPrompt = `You are a business analyst AI. List the top 3 direct competitors of the company '%s'.
Provide only a list: ["Competitor1", "Competitor2", "Competitor3"]
If no clear competitors are known, return an empty list: []`

// listSchema constrains the reply to a JSON array of at most three names
var listSchema = map[string]interface{}{
	"type":     "array",
	"items":    map[string]interface{}{"type": "string"},
	"maxItems": MaxCompetitors,
}

// Suggester asks the model for a company's competitors
type Suggester struct {
	logger arbor.ILogger
}

// NewSuggester creates a competitor suggester
func NewSuggester(logger arbor.ILogger) *Suggester {
	return &Suggester{logger: logger}
}

// Suggest returns up to three competitor names. Model errors and unparseable replies yield an empty slice.
func (s *Suggester) Suggest(ctx context.Context, session interfaces.ChatSession, company string) []string {
	reply, err := session.SendStructured(ctx, fmt.Sprintf(suggestPrompt, company), listSchema)
	if err != nil {
		s.logger.Warn().Err(err).Str("company", company).Msg("Competitor suggestion failed")
		return []string{}
	}

	parsed := ParseList(reply)
	if len(parsed) == 0 && strings.TrimSpace(reply) != "[]" {
		s.logger.Warn().Str("company", company).Str("reply", reply).Msg("Could not parse competitor list")
	}

	names := make([]string, 0, MaxCompetitors)
	for _, name := range parsed {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		names = append(names, name)
		if len(names) == MaxCompetitors {
			break
		}
	}
	return names
}
