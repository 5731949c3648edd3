// Package rag retrieves notes by domain filter and vector similarity.
package rag

import (
	"context"
	"errors"
	"log/slog"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/store"
)

// DefaultLimit is used when the caller does not bound the result count.
const DefaultLimit = 3

// ErrQueryNotEmbedded is returned when the query text could not be vectorized.
// No ranking signal exists, so the store is not queried.
var ErrQueryNotEmbedded = errors.New("query could not be embedded")

// DomainInferrer resolves the domain of a query; empty means unknown.
type DomainInferrer interface {
	Infer(ctx context.Context, text string) string
}

// NoteSearcher ranks stored notes.
type NoteSearcher interface {
	SearchNotes(ctx context.Context, search *store.SearchNotes) ([]*store.NoteWithScore, error)
}

// Retriever narrows notes to the query's domain, then ranks them by similarity.
type Retriever struct {
	vectorizer ai.Vectorizer
	domains    DomainInferrer
	store      NoteSearcher
}

// NewRetriever creates a new Retriever.
func NewRetriever(vectorizer ai.Vectorizer, domains DomainInferrer, store NoteSearcher) *Retriever {
	return &Retriever{
		vectorizer: vectorizer,
		domains:    domains,
		store:      store,
	}
}

// Search returns at most limit notes, most similar first.
// An empty inferred domain matches every note, including notes without a domain.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]*store.NoteWithScore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector := r.vectorizer.Vectorize(ctx, query)
	if vector == nil {
		return nil, ErrQueryNotEmbedded
	}

	domain := r.domains.Infer(ctx, query)

	var filter *store.Filter
	if domain != "" {
		filter = store.Eq("domain", domain)
	}

	results, err := r.store.SearchNotes(ctx, &store.SearchNotes{
		Filter: filter,
		Vector: vector,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("notes retrieved",
		"domain", domain,
		"limit", limit,
		"count", len(results),
	)
	return results, nil
}
