package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// TestNewLLMService tests service creation.
func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{
			name: "DeepSeek config",
			cfg: &LLMConfig{
				Provider:    "deepseek",
				Model:       "deepseek-chat",
				APIKey:      "test-key",
				BaseURL:     "https://api.deepseek.com",
				MaxTokens:   2048,
				Temperature: 0.7,
			},
		},
		{
			name: "OpenAI config",
			cfg: &LLMConfig{
				Provider:    "openai",
				Model:       "gpt-4o-mini",
				APIKey:      "test-key",
				BaseURL:     "https://api.openai.com/v1",
				MaxTokens:   2048,
				Temperature: 0.7,
			},
		},
		{
			name: "Ollama config",
			cfg: &LLMConfig{
				Provider: "ollama",
				Model:    "llama3",
				BaseURL:  "http://localhost:11434",
			},
		},
		{
			name:        "DeepSeek without base url",
			cfg:         &LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "test-key"},
			expectError: true,
		},
		{
			name:        "Unsupported provider",
			cfg:         &LLMConfig{Provider: "unsupported"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInstruction(t *testing.T) {
	out := instruction("be brief", "text: hi")

	require.Len(t, out, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, out[1].Role)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("be brief")}, out[0].Parts)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("text: hi")}, out[1].Parts)
}

// mockLLMService records the instruction it receives.
type mockLLMService struct {
	answer     string
	err        error
	callCount  atomic.Int32
	lastSystem string
	lastUser   string
	deadline   bool
}

func (m *mockLLMService) Instruct(ctx context.Context, system, user string) (string, error) {
	m.callCount.Add(1)
	m.lastSystem, m.lastUser = system, user
	_, m.deadline = ctx.Deadline()
	return m.answer, m.err
}

func TestCompletionClient_Complete(t *testing.T) {
	t.Run("passes system and user instruction", func(t *testing.T) {
		llm := &mockLLMService{answer: "  a title \n"}
		c := NewCompletionClient(llm)

		got, err := c.Complete(context.Background(), "sys", "text: hi")
		require.NoError(t, err)
		assert.Equal(t, "a title", got)
		assert.Equal(t, "sys", llm.lastSystem)
		assert.Equal(t, "text: hi", llm.lastUser)
		assert.True(t, llm.deadline, "completion calls carry a timeout")
	})

	t.Run("provider error is not retried", func(t *testing.T) {
		llm := &mockLLMService{err: errors.New("rate limited")}
		c := NewCompletionClient(llm)

		_, err := c.Complete(context.Background(), "sys", "user")
		assert.Error(t, err)
		assert.Equal(t, int32(1), llm.callCount.Load())
	})

	t.Run("blank answer", func(t *testing.T) {
		llm := &mockLLMService{answer: "   "}
		c := NewCompletionClient(llm)

		_, err := c.Complete(context.Background(), "sys", "user")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("custom timeout", func(t *testing.T) {
		llm := &mockLLMService{answer: "ok"}
		c := NewCompletionClient(llm)
		c.timeout = time.Millisecond

		_, err := c.Complete(context.Background(), "sys", "user")
		assert.NoError(t, err)
	})
}

func TestTruncateLog(t *testing.T) {
	assert.Equal(t, "short", TruncateLog("short", 10))
	assert.Equal(t, "abc...", TruncateLog("abcdef", 3))
	assert.Equal(t, "héé...", TruncateLog("hééllo", 3))
}
