package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Ping(ctx context.Context) error

	IsInitialized(ctx context.Context) (bool, error)

	// Note model related methods.
	CreateNote(ctx context.Context, create *Note) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	CountNotes(ctx context.Context) (int, error)

	// SearchNotes filters first, then ranks the remaining embedded notes by
	// descending dot product with the query vector. Notes without a vector are
	// never returned.
	SearchNotes(ctx context.Context, search *SearchNotes) ([]*NoteWithScore, error)
}
