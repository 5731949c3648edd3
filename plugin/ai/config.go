package ai

import (
	"errors"

	"github.com/olivesarenice/telegram-rag/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retry     RetryConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, ollama
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
	MaxChars   int // texts longer than this are never embedded
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, ollama
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// RetryConfig bounds the embedding retry loop.
type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Provider:   p.AIEmbeddingProvider,
			Model:      p.AIEmbeddingModel,
			Dimensions: p.AIEmbeddingDims,
			MaxChars:   DefaultMaxEmbeddingChars,
		},
		LLM: LLMConfig{
			Provider:    p.AILLMProvider,
			Model:       p.AILLMModel,
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			Backoff:     DefaultBackoff(),
		},
	}

	switch p.AIEmbeddingProvider {
	case "openai":
		cfg.Embedding.APIKey = p.AIOpenAIAPIKey
		cfg.Embedding.BaseURL = p.AIOpenAIBaseURL
	case "ollama":
		// Ollama exposes an OpenAI compatible endpoint under /v1.
		cfg.Embedding.BaseURL = p.AIOllamaBaseURL + "/v1"
	}

	switch p.AILLMProvider {
	case "deepseek":
		cfg.LLM.APIKey = p.AIDeepSeekAPIKey
		cfg.LLM.BaseURL = p.AIDeepSeekBaseURL
	case "openai":
		cfg.LLM.APIKey = p.AIOpenAIAPIKey
		cfg.LLM.BaseURL = p.AIOpenAIBaseURL
	case "ollama":
		cfg.LLM.BaseURL = p.AIOllamaBaseURL
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.ValidateEmbedding(); err != nil {
		return err
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	return nil
}

// ValidateEmbedding checks only what the embedding client needs.
func (c *Config) ValidateEmbedding() error {
	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}

	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry attempts must be positive")
	}

	return nil
}
