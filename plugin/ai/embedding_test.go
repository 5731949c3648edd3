package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewEmbeddingService tests service creation.
func TestNewEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *EmbeddingConfig
		expectError bool
	}{
		{
			name: "OpenAI config",
			cfg: &EmbeddingConfig{
				Provider:   "openai",
				Model:      "text-embedding-3-small",
				Dimensions: 1536,
				APIKey:     "test-key",
				BaseURL:    "https://api.openai.com/v1",
			},
		},
		{
			name: "Ollama config",
			cfg: &EmbeddingConfig{
				Provider:   "ollama",
				Model:      "nomic-embed-text",
				Dimensions: 768,
				BaseURL:    "http://localhost:11434/v1",
			},
		},
		{
			name:        "Ollama without base url",
			cfg:         &EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text"},
			expectError: true,
		},
		{
			name:        "Unsupported provider",
			cfg:         &EmbeddingConfig{Provider: "unsupported"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestEmbeddingService_Embed(t *testing.T) {
	type embeddingRequest struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions"`
	}
	requests := make(chan embeddingRequest, 2)
	var empty atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/embeddings" || empty.Load() {
			fmt.Fprint(w, `{"object":"list","data":[],"model":"m"}`)
			return
		}
		fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,0.5,1]}],"model":"m"}`)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		Dimensions: 3,
		APIKey:     "k",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	vector, err := svc.Embed(context.Background(), "took a walk")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 1}, vector)
	got := <-requests
	assert.Equal(t, []string{"took a walk"}, got.Input)
	assert.Equal(t, "text-embedding-3-small", got.Model)
	assert.Equal(t, 3, got.Dimensions)

	t.Run("empty response", func(t *testing.T) {
		empty.Store(true)
		_, err := svc.Embed(context.Background(), "x")
		assert.Error(t, err)
	})
}

// mockEmbeddingService returns a scripted sequence of results.
type mockEmbeddingService struct {
	results   []mockEmbedResult
	callCount atomic.Int32
}

type mockEmbedResult struct {
	vector []float32
	err    error
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	n := int(m.callCount.Add(1)) - 1
	if n >= len(m.results) {
		n = len(m.results) - 1
	}
	r := m.results[n]
	return r.vector, r.err
}

func newTestEmbeddingClient(svc EmbeddingService, delays *[]time.Duration) *EmbeddingClient {
	c := NewEmbeddingClient(svc, 0, RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     Backoff{Base: time.Second, Max: 60 * time.Second},
	})
	c.sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return c
}

func TestEmbeddingClient_Vectorize(t *testing.T) {
	t.Run("empty text makes no call", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{vector: []float32{1}}}}
		c := newTestEmbeddingClient(svc, nil)

		assert.Nil(t, c.Vectorize(context.Background(), ""))
		assert.Equal(t, int32(0), svc.callCount.Load())
	})

	t.Run("text over ceiling makes no call", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{vector: []float32{1}}}}
		c := newTestEmbeddingClient(svc, nil)

		assert.Nil(t, c.Vectorize(context.Background(), strings.Repeat("x", 10001)))
		assert.Equal(t, int32(0), svc.callCount.Load())
	})

	t.Run("text at ceiling is embedded", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{vector: []float32{1}}}}
		c := newTestEmbeddingClient(svc, nil)

		assert.Equal(t, []float32{1}, c.Vectorize(context.Background(), strings.Repeat("x", 10000)))
	})

	t.Run("returns provider vector unchanged", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{vector: []float32{0.1, 0.2, 0.3}}}}
		c := newTestEmbeddingClient(svc, nil)

		assert.Equal(t, []float32{0.1, 0.2, 0.3}, c.Vectorize(context.Background(), "hello"))
		assert.Equal(t, int32(1), svc.callCount.Load())
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{
			{err: errors.New("503")},
			{vector: nil},
			{vector: []float32{0.5}},
		}}
		var delays []time.Duration
		c := newTestEmbeddingClient(svc, &delays)

		assert.Equal(t, []float32{0.5}, c.Vectorize(context.Background(), "hello"))
		assert.Equal(t, int32(3), svc.callCount.Load())
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{err: errors.New("down")}}}
		var delays []time.Duration
		c := newTestEmbeddingClient(svc, &delays)

		assert.Nil(t, c.Vectorize(context.Background(), "hello"))
		assert.Equal(t, int32(DefaultMaxAttempts), svc.callCount.Load())
		// No wait after the final attempt.
		assert.Len(t, delays, DefaultMaxAttempts-1)
	})

	t.Run("cancelled wait returns nil", func(t *testing.T) {
		svc := &mockEmbeddingService{results: []mockEmbedResult{{err: errors.New("down")}}}
		c := newTestEmbeddingClient(svc, nil)
		c.sleep = sleepContext
		c.backoff = Backoff{Base: time.Hour, Max: time.Hour}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Nil(t, c.Vectorize(ctx, "hello"))
		assert.Equal(t, int32(1), svc.callCount.Load())
	})
}

func TestNewEmbeddingClient_Defaults(t *testing.T) {
	svc := &mockEmbeddingService{results: []mockEmbedResult{{err: errors.New("down")}}}

	t.Run("zero backoff uses the default policy", func(t *testing.T) {
		c := NewEmbeddingClient(svc, 0, RetryConfig{MaxAttempts: 5})
		assert.Equal(t, time.Second, c.backoff.Base)
		assert.Equal(t, 60*time.Second, c.backoff.Max)
		require.NotNil(t, c.backoff.Jitter)

		for attempt := 0; attempt < 5; attempt++ {
			assert.GreaterOrEqual(t, c.backoff.Delay(attempt), time.Second<<attempt)
		}
	})

	t.Run("zero config waits between retries", func(t *testing.T) {
		var delays []time.Duration
		c := NewEmbeddingClient(svc, 0, RetryConfig{})
		c.sleep = func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}

		assert.Nil(t, c.Vectorize(context.Background(), "hello"))
		require.Len(t, delays, DefaultMaxAttempts-1)
		for _, d := range delays {
			assert.GreaterOrEqual(t, d, time.Second)
		}
	})

	t.Run("missing cap is filled", func(t *testing.T) {
		c := NewEmbeddingClient(svc, 0, RetryConfig{Backoff: Backoff{Base: 2 * time.Second}})
		assert.Equal(t, 2*time.Second, c.backoff.Base)
		assert.Equal(t, 60*time.Second, c.backoff.Max)
		assert.Equal(t, 4*time.Second, c.backoff.Delay(1))
	})
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 60 * time.Second}

	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 32*time.Second, b.Delay(5))
	assert.Equal(t, 60*time.Second, b.Delay(6))
	assert.Equal(t, 60*time.Second, b.Delay(100))

	t.Run("jitter is added", func(t *testing.T) {
		b := Backoff{Base: time.Second, Max: 60 * time.Second, Jitter: func() time.Duration { return 250 * time.Millisecond }}
		assert.Equal(t, 1250*time.Millisecond, b.Delay(0))
	})

	t.Run("default jitter stays below one second", func(t *testing.T) {
		b := DefaultBackoff()
		for i := 0; i < 50; i++ {
			d := b.Delay(0)
			assert.GreaterOrEqual(t, d, time.Second)
			assert.Less(t, d, 2*time.Second)
		}
	})
}
