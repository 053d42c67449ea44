package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/ternarybob/marketlens/internal/interfaces"
)

// convertMessagesToOpenAI maps chat messages to OpenAI message unions.
// An explicit system instruction is sent first and replaces any system messages.
func convertMessagesToOpenAI(messages []interfaces.Message, systemInstruction string) ([]openai.ChatCompletionMessageParamUnion, error) {
	if !hasUserMessage(messages) {
		return nil, fmt.Errorf("at least one message must have role 'user'")
	}

	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemInstruction != "" {
		params = append(params, openai.SystemMessage(systemInstruction))
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemInstruction == "" {
				params = append(params, openai.SystemMessage(msg.Content))
			}
		case "assistant":
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}

	return params, nil
}

func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.getOpenAIClient()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.openaiConfig.Model
	}

	messages, err := convertMessagesToOpenAI(request.Messages, request.SystemInstruction)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.openaiConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(float64(temp))
	}
	if request.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxTokens))
	}

	resp, err := withRetry(ctx, f.logger, string(ProviderOpenAI), f.llmConfig.MaxRetries, func() (*openai.ChatCompletion, error) {
		return client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from OpenAI API")
	}

	return &interfaces.ContentResponse{
		Text:     resp.Choices[0].Message.Content,
		Provider: string(ProviderOpenAI),
		Model:    model,
	}, nil
}
