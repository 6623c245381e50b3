package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultMigrationsSource locates the migrations shipped alongside the
// binaries, relative to the working directory
const DefaultMigrationsSource = "file://migrations"

// Migrate applies all pending up migrations. An empty sourceURL selects
// DefaultMigrationsSource.
func Migrate(databaseURL, sourceURL string, logger *slog.Logger) error {
	if sourceURL == "" {
		sourceURL = DefaultMigrationsSource
	}
	if logger == nil {
		logger = slog.Default()
	}

	// golang-migrate wants a database/sql handle, not a pgx pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && verr != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", verr)
	}

	if verr == migrate.ErrNilVersion {
		logger.Info("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		logger.Info("migrations: database is up to date", "version", version)
	} else {
		logger.Info("migrations: applied successfully", "version", version)
	}

	return nil
}
