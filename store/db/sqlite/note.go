package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/olivesarenice/telegram-rag/store"
)

const noteColumns = `id, message_id, updated_at, domain, title, summary, cleaned_body, embedding_text, raw_text, embedding`

func (d *DB) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	stmt := `INSERT INTO note (` + noteColumns + `) VALUES (` + placeholders(10) + `)`

	var embedding sql.NullString
	if len(create.Vector) > 0 {
		bytes, err := json.Marshal(create.Vector)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal vector")
		}
		embedding = sql.NullString{String: string(bytes), Valid: true}
	}

	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.MessageID,
		create.UpdatedAt,
		sql.NullString{String: create.Domain, Valid: create.Domain != ""},
		create.Title,
		create.Summary,
		create.CleanedBody,
		create.EmbeddingText,
		create.RawText,
		embedding,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create note")
	}
	return create, nil
}

func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args, err := find.Filter.SQL(placeholder, 0)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE ` + where + ` ORDER BY rowid ASC`
	if find.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, find.Limit)
	}
	return d.queryNotes(ctx, query, args...)
}

// SearchNotes filters in SQL and ranks by dot product in process. Ties keep
// insertion order.
func (d *DB) SearchNotes(ctx context.Context, search *store.SearchNotes) ([]*store.NoteWithScore, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 3
	}

	where, args, err := search.Filter.SQL(placeholder, 0)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE embedding IS NOT NULL AND ` + where + ` ORDER BY rowid ASC`
	notes, err := d.queryNotes(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	results := make([]*store.NoteWithScore, 0, len(notes))
	for _, note := range notes {
		results = append(results, &store.NoteWithScore{
			Note:  note,
			Score: store.Dot(note.Vector, search.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
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

func (d *DB) queryNotes(ctx context.Context, query string, args ...any) ([]*store.Note, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query notes")
	}
	defer rows.Close()

	list := []*store.Note{}
	for rows.Next() {
		var note store.Note
		var domain, embedding sql.NullString
		if err := rows.Scan(
			&note.ID,
			&note.MessageID,
			&note.UpdatedAt,
			&domain,
			&note.Title,
			&note.Summary,
			&note.CleanedBody,
			&note.EmbeddingText,
			&note.RawText,
			&embedding,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}

		note.Domain = domain.String
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &note.Vector); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal vector of note %s", note.ID)
			}
		}
		list = append(list, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
