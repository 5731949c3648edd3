package store

import (
	"context"
	"time"
)

// TimestampLayout is the UTC layout of Note.UpdatedAt.
const TimestampLayout = "2006-01-02 15:04:05"

// Note is an enriched, optionally embedded message.
// Empty Domain and nil Vector are stored as NULL.
type Note struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	UpdatedAt     string    `json:"updated_at"`
	Domain        string    `json:"domain,omitempty"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	CleanedBody   string    `json:"cleaned_body"`
	EmbeddingText string    `json:"embedding_text"`
	RawText       string    `json:"raw_text"`
	Vector        []float32 `json:"vector,omitempty"`
}

// NoteWithScore is a search hit with its dot product against the query vector.
type NoteWithScore struct {
	Note  *Note
	Score float32
}

// FindNote is the find condition for listing notes in insertion order.
type FindNote struct {
	Filter *Filter
	Limit  int
}

// SearchNotes ranks notes matching Filter by similarity to Vector.
type SearchNotes struct {
	Filter *Filter
	Vector []float32
	Limit  int
}

// FormatTimestamp renders t the way notes store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CreateNote persists a new note. Notes are never updated afterwards.
func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	return s.driver.CreateNote(ctx, create)
}

// ListNotes lists notes matching the filter, oldest first.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

// SearchNotes returns at most Limit embedded notes ordered by descending similarity.
func (s *Store) SearchNotes(ctx context.Context, search *SearchNotes) ([]*NoteWithScore, error) {
	if len(search.Vector) == 0 {
		return nil, ErrEmptyQueryVector
	}
	return s.driver.SearchNotes(ctx, search)
}

// CountNotes counts every stored note.
func (s *Store) CountNotes(ctx context.Context) (int, error) {
	return s.driver.CountNotes(ctx)
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
