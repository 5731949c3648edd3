package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olivesarenice/telegram-rag/plugin/ai/timeout"
)

// ErrEmptyCompletion is returned when the provider answers with blank text.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer answers a user instruction under a system instruction.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompletionClient makes exactly one provider call per request.
// Failures are returned to the caller unretried.
type CompletionClient struct {
	llm     LLMService
	timeout time.Duration
}

// NewCompletionClient creates a CompletionClient with the default per-call timeout.
func NewCompletionClient(llm LLMService) *CompletionClient {
	return &CompletionClient{
		llm:     llm,
		timeout: timeout.CompletionTimeout,
	}
}

// Complete returns the trimmed model answer.
func (c *CompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.llm.Instruct(ctx, system, user)
	if err != nil {
		slog.Warn("completion failed", "error", err, "timeout", c.timeout)
		return "", fmt.Errorf("completion failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}

// TruncateLog shortens s for log output.
func TruncateLog(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = timeout.MaxTruncateLength
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
