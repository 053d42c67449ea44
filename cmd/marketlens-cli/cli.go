package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/conversation"
	"github.com/ternarybob/marketlens/internal/services/dispatch"
)

const (
	companyPrompt  = "Enter a company name to analyze (e.g., 'Apple', 'Microsoft', or 'exit' to quit): "
	followUpPrompt = "Ask a follow-up (or type 'new' to analyze another company, 'exit' to quit): "
	rule           = "---------------------------------------------------"
)

type analyzer interface {
	Start(ctx context.Context, session interfaces.ChatSession, company string) *models.Insight
}

type router interface {
	Dispatch(ctx context.Context, session interfaces.ChatSession, utterance string) dispatch.Result
}

// cli is the interactive loop: a company analysis, then follow-ups on the same session
// until the user asks for a new company or exits.
type cli struct {
	in       io.Reader
	out      io.Writer
	sessions *conversation.Manager
	analysis analyzer
	router   router
}

func (c *cli) run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	read := func(prompt string) (string, bool) {
		fmt.Fprint(c.out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(c.out, "I'm your marketing and financial assistant. Type 'exit' to quit.")

	for ctx.Err() == nil {
		company, ok := read(companyPrompt)
		if !ok || strings.EqualFold(company, "exit") {
			break
		}
		if company == "" {
			continue
		}

		session := c.sessions.New(ctx)
		fmt.Fprintf(c.out, "Analyzing '%s'...\n", company)
		insight := c.analysis.Start(ctx, session, company)
		c.printInsight(insight)

		if !c.followUps(ctx, session, read) {
			break
		}
	}

	fmt.Fprintln(c.out, "Goodbye.")
	return scannerErr(scanner)
}

// followUps loops on questions for session. It returns false when the user exits.
func (c *cli) followUps(ctx context.Context, session *conversation.Session, read func(string) (string, bool)) bool {
	for ctx.Err() == nil {
		question, ok := read(followUpPrompt)
		if !ok {
			return false
		}
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit":
			return false
		case "new":
			return true
		}

		result := c.router.Dispatch(ctx, session, question)
		fmt.Fprintf(c.out, "\n--- %s ---\n%s\n%s\n\n", result.Tool, result.Reply, rule)
	}
	return false
}

func (c *cli) printInsight(insight *models.Insight) {
	if insight.Ticker.Found {
		fmt.Fprintf(c.out, "Ticker: %s\n", insight.Ticker.Symbol)
	} else {
		fmt.Fprintln(c.out, "No listed ticker found; skipping stock analysis for the company.")
	}
	if len(insight.Competitors) > 0 {
		fmt.Fprintf(c.out, "Competitors: %s\n", strings.Join(insight.Competitors, ", "))
	}

	fmt.Fprintf(c.out, "\n--- Competitive Marketing and Financial Insights ---\n%s\n%s\n\n", insight.Text, rule)
}

func scannerErr(s *bufio.Scanner) error {
	if err := s.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
