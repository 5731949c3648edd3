package postgres

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/olivesarenice/telegram-rag/store"
)

const noteColumns = `id, message_id, updated_at, domain, title, summary, cleaned_body, embedding_text, raw_text, embedding`

// CreateNote inserts a note. A nil vector is stored as NULL.
func (d *DB) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	stmt := `INSERT INTO note (` + noteColumns + `) VALUES (` + placeholders(10) + `)`

	var vector any
	if len(create.Vector) > 0 {
		vector = pgvector.NewVector(create.Vector)
	}

	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.MessageID,
		create.UpdatedAt,
		nullString(create.Domain),
		create.Title,
		create.Summary,
		create.CleanedBody,
		create.EmbeddingText,
		create.RawText,
		vector,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create note")
	}
	return create, nil
}

// ListNotes lists notes matching the filter in insertion order.
func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args, err := find.Filter.SQL(placeholder, 0)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE ` + where + ` ORDER BY seq ASC`
	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += ` LIMIT ` + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	list := []*store.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchNotes ranks with the negative inner product operator <#>, so ascending
// order is descending dot product.
func (d *DB) SearchNotes(ctx context.Context, search *store.SearchNotes) ([]*store.NoteWithScore, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 3
	}

	where, filterArgs, err := search.Filter.SQL(placeholder, 1)
	if err != nil {
		return nil, err
	}

	args := append([]any{pgvector.NewVector(search.Vector)}, filterArgs...)
	args = append(args, limit)

	query := `
		SELECT ` + noteColumns + `, -(embedding <#> $1) AS score
		FROM note
		WHERE embedding IS NOT NULL AND ` + where + `
		ORDER BY embedding <#> $1, seq ASC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search notes")
	}
	defer rows.Close()

	results := []*store.NoteWithScore{}
	for rows.Next() {
		var result store.NoteWithScore
		note, err := scanNote(rows, &result.Score)
		if err != nil {
			return nil, err
		}
		result.Note = note
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DB) CountNotes(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM note`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count notes")
	}
	return count, nil
}

func scanNote(rows *sql.Rows, extra ...any) (*store.Note, error) {
	var note store.Note
	var domain sql.NullString
	var vector *pgvector.Vector

	dest := []any{
		&note.ID,
		&note.MessageID,
		&note.UpdatedAt,
		&domain,
		&note.Title,
		&note.Summary,
		&note.CleanedBody,
		&note.EmbeddingText,
		&note.RawText,
		&vector,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return nil, errors.Wrap(err, "failed to scan note")
	}

	note.Domain = domain.String
	if vector != nil {
		note.Vector = vector.Slice()
	}
	return &note, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
