package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
	"github.com/ternarybob/marketlens/internal/services/toptrends"
)

// toolRunner runs one dispatch tool directly, skipping classification
type toolRunner interface {
	Run(ctx context.Context, session interfaces.ChatSession, tool dispatch.Tool, input string) dispatch.Result
}

type generalTrends interface {
	General(days, top int) string
}

// createTool returns the MCP definition for a dispatch tool.
// Company tools take "company"; the rest take a free-text "query".
func createTool(info dispatch.ToolInfo) mcp.Tool {
	switch {
	case info.Name == dispatch.ToolGeneralTrends:
		return mcp.NewTool(string(info.Name),
			mcp.WithDescription(info.Description),
			mcp.WithNumber("days", mcp.Description(fmt.Sprintf("Most recent days to include (default: %d)", toptrends.DefaultDays))),
			mcp.WithNumber("top", mcp.Description(fmt.Sprintf("Terms per day (default: %d)", toptrends.DefaultTopTerms))),
		)
	case info.NeedsCompany:
		return mcp.NewTool(string(info.Name),
			mcp.WithDescription(info.Description),
			mcp.WithString("company",
				mcp.Required(),
				mcp.Description("Company name, e.g. 'Tesla' or 'Unilever'"),
			),
		)
	default:
		return mcp.NewTool(string(info.Name),
			mcp.WithDescription(info.Description),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Keyword, company or question"),
			),
		)
	}
}

// handleTool runs info's branch of the dispatcher on session
func handleTool(info dispatch.ToolInfo, runner toolRunner, trends generalTrends, session interfaces.ChatSession, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if info.Name == dispatch.ToolGeneralTrends {
			days := request.GetInt("days", toptrends.DefaultDays)
			top := request.GetInt("top", toptrends.DefaultTopTerms)
			return mcp.NewToolResultText(trends.General(days, top)), nil
		}

		arg := "query"
		if info.NeedsCompany {
			arg = "company"
		}
		input, err := request.RequireString(arg)
		if err != nil || input == "" {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s parameter is required", arg)), nil
		}

		logger.Debug().Str("tool", string(info.Name)).Str(arg, input).Msg("MCP tool call")

		result := runner.Run(ctx, session, info.Name, input)
		return mcp.NewToolResultText(result.Reply), nil
	}
}

// registerTools adds every dispatch tool to s
func registerTools(s *server.MCPServer, runner toolRunner, trends generalTrends, session interfaces.ChatSession, logger arbor.ILogger) {
	for _, info := range dispatch.Tools {
		s.AddTool(createTool(info), handleTool(info, runner, trends, session, logger))
	}
}
