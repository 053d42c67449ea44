// Package dispatch routes a free-form user utterance to one market data tool.
package dispatch

import (
	"fmt"
	"strings"
)

// Tool names a dispatchable capability
type Tool string

const (
	ToolStock         Tool = "get_stock"
	ToolGeneralTrends Tool = "get_general_trends"
	ToolCompanyTrends Tool = "get_company_trends"
	ToolNews          Tool = "get_news"
	ToolCompetitors   Tool = "get_competitors"
	ToolInsight       Tool = "get_insight"
	ToolChat          Tool = "chat"
)

// ToolInfo describes a tool to the classifier and to MCP clients
type ToolInfo struct {
	Name         Tool
	Description  string
	NeedsCompany bool
}

// Tools is the closed set of tools, in classifier order
var Tools = []ToolInfo{
	{ToolStock, "Get real-time or historical stock price and volume for a **specific company's ticker**.", true},
	{ToolGeneralTrends, "Get the most recent **general top Google search trends** across various topics. Use this when the user asks for 'new trends', 'trending topics', or 'what's popular'.", false},
	{ToolCompanyTrends, "Get Google Trends data to understand search interest related to a **specific company or keyword**.", true},
	{ToolNews, "Get recent news articles for a **specific keyword or company**.", false},
	{ToolCompetitors, "Suggest top 3 direct competitors of a **given company**.", true},
	{ToolInsight, "Generate a comprehensive market analysis using all tools for a **specific company**.", true},
	{ToolChat, "General chat or follow-up questions for topics not covered by specific tools.", false},
}

// ParseTool matches a classifier reply to a tool name. Only surrounding whitespace,
// quotes and backticks are tolerated; anything else is not a match.
func ParseTool(reply string) (Tool, bool) {
	name := strings.Trim(strings.TrimSpace(reply), "`\"'")
	name = strings.TrimSpace(name)
	for _, t := range Tools {
		if string(t.Name) == name {
			return t.Name, true
		}
	}
	return ToolChat, false
}

// Lookup returns the tool with name
func Lookup(name string) (ToolInfo, bool) {
	for _, t := range Tools {
		if string(t.Name) == name {
			return t, true
		}
	}
	return ToolInfo{}, false
}

func toolList() string {
	var sb strings.Builder
	for _, t := range Tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
	}
	return sb.String()
}
