package test

import (
	"context"
	"os"
	"testing"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/store"
	"github.com/olivesarenice/telegram-rag/store/db"
)

// getDriverFromEnv reads DRIVER, defaulting to sqlite.
func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// NewTestingStore opens a fresh, migrated store for one test.
// Postgres runs only when POSTGRES_TEST_DSN points at a database with pgvector.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	driver := getDriverFromEnv()
	prof := &profile.Profile{Mode: "dev", Driver: driver}
	switch driver {
	case "sqlite":
		prof.DSN = ":memory:"
	case "postgres":
		prof.DSN = os.Getenv("POSTGRES_TEST_DSN")
		if prof.DSN == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
	default:
		t.Fatalf("unknown driver %q", driver)
	}

	dbDriver, err := db.NewDBDriver(prof)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	if driver == "postgres" {
		if _, err := dbDriver.GetDB().ExecContext(ctx, "DROP TABLE IF EXISTS note"); err != nil {
			t.Fatalf("failed to reset database: %v", err)
		}
	}

	ts := store.New(dbDriver, prof)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		ts.Close()
	})
	return ts
}
