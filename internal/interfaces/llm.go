package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ContentRequest is a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []Message
	Model             string // Optional; "claude/..." style prefixes select the provider
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	OutputSchema      map[string]interface{} // JSON schema for structured output (Gemini only)
}

// ContentResponse is a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider string
	Model    string
}

// LLMProvider generates content from a full message history.
// Implementations are stateless; conversation state is held by the caller.
type LLMProvider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// ChatSession is a stateful conversation with the generative model.
// Each successful Send appends the prompt and reply to the session history.
type ChatSession interface {
	ID() string
	Send(ctx context.Context, prompt string) (string, error)
	// SendStructured requests output constrained to a JSON schema where the provider supports it
	SendStructured(ctx context.Context, prompt string, schema map[string]interface{}) (string, error)
}
