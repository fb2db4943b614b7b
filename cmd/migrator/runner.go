package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/salesdash-io/salesdash/migrations"
)

type (
	// MigrationRunner defines the interface for running database migrations
	MigrationRunner interface {
		// Up applies all pending migrations
		Up() error

		// Down rollbacks the last migration
		Down() error

		// Status shows the current migration status
		Status() error

		// Version shows the current migration version
		Version() error

		// Drop drops all tables (destructive operation)
		Drop() error

		// Close closes any open connections
		Close() error
	}

	migrationRunner struct {
		config  *Config
		migrate *migrate.Migrate
		total   int
	}

	migrateLogger struct{}
)

var _ migrate.Logger = (*migrateLogger)(nil)

// NewMigrationRunner validates the migration set, connects to the database and
// prepares a golang-migrate instance over the embedded or on-disk files.
func NewMigrationRunner(config *Config) (MigrationRunner, error) {
	log.Printf("Initializing migration runner with config: %s", config.String())

	fsys := migrations.FS()
	if !config.Embedded() {
		fsys = os.DirFS(config.MigrationsPath)
	}

	if err := migrations.Validate(fsys); err != nil {
		return nil, fmt.Errorf("invalid migration set: %w", err)
	}

	infos, err := migrations.List(fsys)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: config.MigrationTable,
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	src, err := newSource(fsys)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{}

	return &migrationRunner{
		config:  config,
		migrate: m,
		total:   len(infos) / 2,
	}, nil
}

func newSource(fsys fs.FS) (source.Driver, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	return src, nil
}

// Up applies all pending migrations
func (r *migrationRunner) Up() error {
	log.Println("Starting migration up...")

	err := r.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No new migrations to apply")

		return nil
	}

	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}

	log.Println("All migrations applied successfully")

	return nil
}

// Down rollbacks the last migration
func (r *migrationRunner) Down() error {
	log.Println("Starting migration down...")

	err := r.migrate.Steps(-1)
	if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, fs.ErrNotExist) {
		log.Println("No migrations to rollback")

		return nil
	}

	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	log.Println("Last migration rolled back successfully")

	return nil
}

// Status shows the current version and how many migrations are pending.
func (r *migrationRunner) Status() error {
	ver, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Printf("Migration Status: No migrations applied yet (%d pending)\n", r.total)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	status := "clean"
	if dirty {
		status = "dirty (needs manual intervention)"
	}

	pending := max(r.total-int(ver), 0)

	fmt.Printf("Migration Status: Version %d (%s), %d pending\n", ver, status, pending)

	return nil
}

// Version shows the current migration version
func (r *migrationRunner) Version() error {
	ver, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Current Version: No migrations applied")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	dirtyNote := ""
	if dirty {
		dirtyNote = " (dirty)"
	}

	fmt.Printf("Current Version: %d%s\n", ver, dirtyNote)

	return nil
}

// Drop drops all tables (destructive operation)
func (r *migrationRunner) Drop() error {
	log.Println("WARNING: Dropping all tables...")

	if err := r.migrate.Drop(); err != nil {
		return fmt.Errorf("drop operation failed: %w", err)
	}

	log.Println("All tables dropped successfully")

	return nil
}

// Close closes the migrate instance, which also closes the database handle.
func (r *migrationRunner) Close() error {
	var errs []error

	if r.migrate != nil {
		sourceErr, dbErr := r.migrate.Close()
		if sourceErr != nil {
			errs = append(errs, fmt.Errorf("source close error: %w", sourceErr))
		}

		if dbErr != nil {
			errs = append(errs, fmt.Errorf("database close error: %w", dbErr))
		}
	}

	return errors.Join(errs...)
}

func (l *migrateLogger) Printf(format string, v ...any) {
	log.Printf("[MIGRATE] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
