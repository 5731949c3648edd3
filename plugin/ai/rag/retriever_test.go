package rag

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/plugin/ai/cache"
	"github.com/olivesarenice/telegram-rag/plugin/ai/tags"
	"github.com/olivesarenice/telegram-rag/store"
	storetest "github.com/olivesarenice/telegram-rag/store/test"
)

var vocabulary = []string{"dev-ideas", "lessons", "data-engineering", "life"}

type countingSearcher struct {
	calls atomic.Int32
	last  *store.SearchNotes
}

func (c *countingSearcher) SearchNotes(_ context.Context, search *store.SearchNotes) ([]*store.NoteWithScore, error) {
	c.calls.Add(1)
	c.last = search
	return nil, nil
}

func seed(t *testing.T, ctx context.Context, ts *store.Store) {
	t.Helper()
	for _, n := range []struct {
		id     string
		domain string
		vector []float32
	}{
		{"walk", "life", []float32{1, 0, 0}},
		{"run", "life", []float32{0.8, 0.2, 0}},
		{"swim", "life", []float32{0.1, 0.9, 0}},
		{"cook", "life", []float32{0, 0, 1}},
		{"outage", "lessons", []float32{1, 0, 0}},
		{"pipeline", "data-engineering", []float32{0.9, 0.1, 0}},
		{"loose", "", []float32{0.95, 0, 0}},
	} {
		_, err := ts.CreateNote(ctx, &store.Note{
			ID:            n.id,
			MessageID:     n.id,
			UpdatedAt:     "2024-06-01 10:00:00",
			Domain:        n.domain,
			Title:         n.id,
			Summary:       n.id,
			CleanedBody:   n.id,
			EmbeddingText: n.id,
			RawText:       n.id,
			Vector:        n.vector,
		})
		require.NoError(t, err)
	}
}

func ids(results []*store.NoteWithScore) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Note.ID
	}
	return out
}

func TestSearch_EmptyStore(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	completer := ai.NewMockCompleter().On("classify", "life")
	r := NewRetriever(ai.NewMockVectorizer([]float32{1, 0, 0}), tags.NewDomainInferrer(completer, vocabulary), ts)

	results, err := r.Search(ctx, "what did I do today", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_LiteralTagFilters(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	seed(t, ctx, ts)

	completer := ai.NewMockCompleter()
	r := NewRetriever(ai.NewMockVectorizer([]float32{1, 0, 0}), tags.NewDomainInferrer(completer, vocabulary), ts)

	results, err := r.Search(ctx, "#life what did I do", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"walk", "run"}, ids(results))
	assert.Empty(t, completer.Calls())
}

func TestSearch_NoCrossDomainLeakage(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	seed(t, ctx, ts)

	for _, domain := range vocabulary {
		t.Run(domain, func(t *testing.T) {
			completer := ai.NewMockCompleter().On("classify", domain)
			r := NewRetriever(ai.NewMockVectorizer([]float32{1, 0, 0}), tags.NewDomainInferrer(completer, vocabulary), ts)

			results, err := r.Search(ctx, "anything", 10)
			require.NoError(t, err)
			for _, res := range results {
				assert.Equal(t, domain, res.Note.Domain)
			}
		})
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	seed(t, ctx, ts)

	completer := ai.NewMockCompleter().On("classify", "life")
	r := NewRetriever(ai.NewMockVectorizer([]float32{1, 0, 0}), tags.NewDomainInferrer(completer, vocabulary), ts)

	results, err := r.Search(ctx, "what did I do", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)
	assert.Equal(t, []string{"walk", "run", "swim"}, ids(results))
}

func TestSearch_UnknownDomainMatchesAll(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	seed(t, ctx, ts)

	completer := ai.NewMockCompleter().OnError("classify", errors.New("provider down"))
	r := NewRetriever(ai.NewMockVectorizer([]float32{1, 0, 0}), tags.NewDomainInferrer(completer, vocabulary), ts)

	results, err := r.Search(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 7)
	assert.Contains(t, ids(results), "loose")
}

func TestSearch_QueryNotEmbedded(t *testing.T) {
	searcher := &countingSearcher{}
	completer := ai.NewMockCompleter().On("classify", "life")
	r := NewRetriever(ai.NewMockVectorizer(nil), tags.NewDomainInferrer(completer, vocabulary), searcher)

	results, err := r.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrQueryNotEmbedded)
	assert.Nil(t, results)
	assert.Equal(t, int32(0), searcher.calls.Load())
	assert.Empty(t, completer.Calls())
}

func TestSearch_FilterShape(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   *store.Filter
	}{
		{"inferred domain", "lessons", store.Eq("domain", "lessons")},
		{"untagged is filtered verbatim", tags.Untagged, store.Eq("domain", tags.Untagged)},
		{"empty answer", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &countingSearcher{}
			completer := ai.NewMockCompleter().On("classify", tt.answer)
			r := NewRetriever(ai.NewMockVectorizer([]float32{1}), tags.NewDomainInferrer(completer, vocabulary), searcher)

			_, err := r.Search(context.Background(), "anything", 5)
			require.NoError(t, err)
			require.NotNil(t, searcher.last)
			assert.Equal(t, tt.want, searcher.last.Filter)
			assert.Equal(t, 5, searcher.last.Limit)
			assert.Equal(t, []float32{1}, searcher.last.Vector)
		})
	}
}

func TestSearch_Idempotent(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)
	seed(t, ctx, ts)

	completer := ai.NewMockCompleter().On("classify", "life")
	domains := tags.NewDomainInferrer(completer, vocabulary).WithMemo(cache.NewLRU[string](16, 0))
	r := NewRetriever(ai.NewMockVectorizer([]float32{0.5, 0.5, 0}), domains, ts)

	first, err := r.Search(ctx, "how was my week", 3)
	require.NoError(t, err)
	second, err := r.Search(ctx, "how was my week", 3)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, 1, completer.CallsMatching("classify"))
}
