package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LLMService answers one user instruction under one system instruction.
// Note enrichment and answering never hold a conversation, so there is no history.
type LLMService interface {
	Instruct(ctx context.Context, system, user string) (string, error)
}

type llmService struct {
	model       llms.Model
	maxTokens   int
	temperature float32
}

// NewLLMService creates an LLMService for the configured provider.
// deepseek and openai share the OpenAI wire format; ollama talks to a local server.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "openai", "deepseek":
		if cfg.Provider == "deepseek" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("deepseek requires a base url")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)

	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}

	return &llmService{
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (s *llmService) Instruct(ctx context.Context, system, user string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, instruction(system, user),
		llms.WithMaxTokens(s.maxTokens),
		llms.WithTemperature(float64(s.temperature)),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// instruction builds the two-message prompt sent for every completion.
func instruction(system, user string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
}
