package store

import (
	"context"
	"errors"

	"github.com/olivesarenice/telegram-rag/internal/profile"
)

// ErrEmptyQueryVector is returned when a search is attempted without a vector.
var ErrEmptyQueryVector = errors.New("search requires a query vector")

// Store provides database access to notes.
// It is opened once per process and shared by all requests.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
