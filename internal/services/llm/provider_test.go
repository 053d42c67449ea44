package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"google.golang.org/genai"
)

func newTestFactory(provider common.LLMProvider) *ProviderFactory {
	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = provider
	return NewProviderFactory(config, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"", ProviderGemini},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-opus-4", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"gpt-4o-mini", ProviderOpenAI},
		{"openai/gpt-4.1", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"mystery-model", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, ProviderOpenAI, newTestFactory(common.LLMProviderOpenAI).DetectProvider(""))
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	assert.Equal(t, "claude-opus-4", f.NormalizeModel("claude/claude-opus-4"))
	assert.Equal(t, "gpt-4o", f.NormalizeModel("OpenAI/gpt-4o"))
	assert.Equal(t, "gemini-2.5-pro", f.NormalizeModel("gemini-2.5-pro"))
}

func TestGenerateContent_RequiresMessages(t *testing.T) {
	f := newTestFactory(common.LLMProviderGemini)

	_, err := f.GenerateContent(context.Background(), &interfaces.ContentRequest{})
	assert.Error(t, err)
}

func TestGenerateContent_MissingKeyFailsWithoutNetwork(t *testing.T) {
	for _, provider := range []common.LLMProvider{common.LLMProviderGemini, common.LLMProviderClaude, common.LLMProviderOpenAI} {
		t.Run(string(provider), func(t *testing.T) {
			f := newTestFactory(provider)

			_, err := f.GenerateContent(context.Background(), &interfaces.ContentRequest{
				Messages: []interfaces.Message{{Role: "user", Content: "hello"}},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "API key is required")
		})
	}
}

func TestConvertMessagesToGemini(t *testing.T) {
	contents, system, err := convertMessagesToGemini([]interfaces.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)

	_, _, err = convertMessagesToGemini([]interfaces.Message{{Role: "assistant", Content: "orphan"}})
	assert.Error(t, err)
}

func TestConvertMessagesToClaude(t *testing.T) {
	params, system, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "again"},
	})
	require.NoError(t, err)

	assert.Equal(t, "be brief", system)
	assert.Len(t, params, 3)
}

func TestConvertMessagesToOpenAI(t *testing.T) {
	params, err := convertMessagesToOpenAI([]interfaces.Message{
		{Role: "system", Content: "ignored"},
		{Role: "user", Content: "hi"},
	}, "override")
	require.NoError(t, err)

	// Explicit instruction replaces in-history system messages
	assert.Len(t, params, 2)
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type":     "array",
		"maxItems": 3,
		"items": map[string]interface{}{
			"type":        "string",
			"description": "company name",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.MaxItems)
	assert.Equal(t, int64(3), *schema.MaxItems)
	require.NotNil(t, schema.Items)
	assert.Equal(t, genai.TypeString, schema.Items.Type)

	_, err = convertToGenaiSchema(map[string]interface{}{"type": "tuple"})
	assert.Error(t, err)

	empty, err := convertToGenaiSchema(nil)
	assert.NoError(t, err)
	assert.Nil(t, empty)
}
