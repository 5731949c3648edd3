package db

import (
	"github.com/pkg/errors"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/store"
	"github.com/olivesarenice/telegram-rag/store/db/postgres"
	"github.com/olivesarenice/telegram-rag/store/db/sqlite"
)

// PostgreSQL with pgvector is the production backend: filtering and dot product
// ranking both happen in the database.
// SQLite is for development and tests: filtering happens in SQL, ranking in Go.

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
