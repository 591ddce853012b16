package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

var gooseInit sync.Once

func setupGoose() error {
	var err error
	gooseInit.Do(func() {
		goose.SetBaseFS(migrationFiles)
		err = goose.SetDialect("postgres")
	})
	return err
}

// RunMigrations applies every pending migration. A nil database is a no-op so
// memory-backed dev runs can share the same startup path.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	return Migrate(ctx, database, "up")
}

// Migrate runs one goose command against the embedded migrations: up,
// up-by-one, down, redo, status or version.
func Migrate(ctx context.Context, database *sql.DB, command string, args ...string) error {
	switch command {
	case "up", "up-by-one", "down", "redo", "status", "version":
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
	if database == nil {
		return nil
	}
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, database, migrationsDir, args...)
}
