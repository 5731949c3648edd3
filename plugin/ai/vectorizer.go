package ai

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/olivesarenice/telegram-rag/plugin/ai/timeout"
)

// Vectorizer turns text into an embedding. A nil result means the text has no vector.
type Vectorizer interface {
	Vectorize(ctx context.Context, text string) []float32
}

// EmbeddingClient wraps an EmbeddingService with input guards and bounded retry.
// It never returns an error: every failure is reported as a nil vector.
type EmbeddingClient struct {
	service     EmbeddingService
	maxChars    int
	maxAttempts int
	backoff     Backoff
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewEmbeddingClient creates an EmbeddingClient with the retry policy from cfg.
func NewEmbeddingClient(service EmbeddingService, maxChars int, retry RetryConfig) *EmbeddingClient {
	if maxChars <= 0 {
		maxChars = DefaultMaxEmbeddingChars
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultMaxAttempts
	}
	if retry.Backoff.Base <= 0 {
		retry.Backoff = DefaultBackoff()
	}
	if retry.Backoff.Max <= 0 {
		retry.Backoff.Max = DefaultBackoff().Max
	}
	return &EmbeddingClient{
		service:     service,
		maxChars:    maxChars,
		maxAttempts: retry.MaxAttempts,
		backoff:     retry.Backoff,
		sleep:       sleepContext,
	}
}

// Vectorize returns the embedding of text, or nil when the text is empty, too long,
// or the provider kept failing.
func (c *EmbeddingClient) Vectorize(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}
	if n := utf8.RuneCountInString(text); n > c.maxChars {
		slog.Warn("text too long to embed",
			"length", n,
			"max", c.maxChars,
		)
		return nil
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		vector, err := c.embedOnce(ctx, text)
		if err == nil && len(vector) > 0 {
			return vector
		}
		if err == nil {
			slog.Warn("embedding provider returned an empty vector", "attempt", attempt+1)
		} else {
			slog.Warn("embedding attempt failed", "attempt", attempt+1, "error", err)
		}

		if attempt == c.maxAttempts-1 {
			break
		}
		if err := c.sleep(ctx, c.backoff.Delay(attempt)); err != nil {
			slog.Warn("embedding retry cancelled", "error", err)
			return nil
		}
	}

	slog.Error("embedding failed after retries", "attempts", c.maxAttempts)
	return nil
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()
	return c.service.Embed(ctx, text)
}
