// Package enrich turns raw message text into a stored, embedded note.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olivesarenice/telegram-rag/plugin/ai"
	"github.com/olivesarenice/telegram-rag/store"
)

// EmbeddingSeparator joins title, summary and cleaned body into the embedded text.
const EmbeddingSeparator = " | "

// UntitledTitle is used when the model answers with an empty title.
const UntitledTitle = "Untitled"

// IncompleteError reports enrichment fields the model failed to produce.
// Without all three the embedding text is undefined, so the note is not built.
type IncompleteError struct {
	MessageID string
	Missing   []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("enrichment of message %q incomplete: missing %s", e.MessageID, strings.Join(e.Missing, ", "))
}

// DomainInferrer resolves the domain tag of a text; empty means unknown.
type DomainInferrer interface {
	Infer(ctx context.Context, text string) string
}

// NoteCreator persists notes.
type NoteCreator interface {
	CreateNote(ctx context.Context, create *store.Note) (*store.Note, error)
}

// Enricher builds notes from raw text.
type Enricher struct {
	completer  ai.Completer
	vectorizer ai.Vectorizer
	domains    DomainInferrer
	store      NoteCreator

	now   func() time.Time
	newID func() (string, error)
}

// NewEnricher creates an Enricher. store may be nil when only Prepare is used.
func NewEnricher(completer ai.Completer, vectorizer ai.Vectorizer, domains DomainInferrer, store NoteCreator) *Enricher {
	return &Enricher{
		completer:  completer,
		vectorizer: vectorizer,
		domains:    domains,
		store:      store,
		now:        time.Now,
		newID:      newNoteID,
	}
}

func newNoteID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Prepare enriches rawText into a note. Steps run in order: trim, domain, title,
// summary, cleaned body, join, embed. A failed domain or embedding leaves that
// field empty; a failed title, summary or body returns *IncompleteError.
func (e *Enricher) Prepare(ctx context.Context, messageID, rawText string) (*store.Note, error) {
	id, err := e.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate note id: %w", err)
	}

	text := strings.TrimSpace(rawText)
	note := &store.Note{
		ID:        id,
		MessageID: messageID,
		RawText:   text,
	}

	note.Domain = e.domains.Infer(ctx, text)

	var missing []string
	title, err := e.completer.Complete(ctx, titlePrompt, userPrompt(text))
	switch {
	case errors.Is(err, ai.ErrEmptyCompletion):
		title = UntitledTitle
	case err != nil:
		missing = append(missing, "title")
	}
	summary, err := e.completer.Complete(ctx, summaryPrompt, userPrompt(text))
	if err != nil {
		missing = append(missing, "summary")
	}
	body, err := e.completer.Complete(ctx, cleanPrompt, userPrompt(text))
	if err != nil {
		missing = append(missing, "cleaned_body")
	}
	if len(missing) > 0 {
		slog.Warn("note enrichment incomplete", "message_id", messageID, "missing", missing)
		return nil, &IncompleteError{MessageID: messageID, Missing: missing}
	}

	note.Title = title
	note.Summary = summary
	note.CleanedBody = body
	note.EmbeddingText = strings.Join([]string{title, summary, body}, EmbeddingSeparator)

	note.Vector = e.vectorizer.Vectorize(ctx, note.EmbeddingText)
	if note.Vector == nil {
		slog.Warn("note stored without vector", "message_id", messageID, "note_id", id)
	}

	note.UpdatedAt = store.FormatTimestamp(e.now())
	return note, nil
}

// Save prepares a note and persists it.
func (e *Enricher) Save(ctx context.Context, messageID, rawText string) (*store.Note, error) {
	if e.store == nil {
		return nil, errors.New("enricher has no store")
	}

	note, err := e.Prepare(ctx, messageID, rawText)
	if err != nil {
		return nil, err
	}

	created, err := e.store.CreateNote(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("failed to store note: %w", err)
	}
	slog.Info("note stored",
		"note_id", created.ID,
		"message_id", created.MessageID,
		"domain", created.Domain,
		"embedded", created.Vector != nil,
	)
	return created, nil
}
