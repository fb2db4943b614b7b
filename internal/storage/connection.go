// Package storage provides the raw data sources of the dashboard: exported
// files on disk and the primary warehouse tables in PostgreSQL or SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"   // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver, pure Go
)

const pingTimeout = 5 * time.Second

// Driver names registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrNoDatabaseConnection is returned when a SQL source is built without a connection.
	ErrNoDatabaseConnection = errors.New("database connection is nil")
	// ErrNoDatabaseConfigured is returned when NewConnection is asked for a database
	// while the primary source is files.
	ErrNoDatabaseConfigured = errors.New("primary source does not use a database")
)

// Connection wraps a database/sql pool together with the driver it was opened
// with, which selects the SQL dialect.
type Connection struct {
	*sql.DB

	Driver string
}

// NewConnection opens and pings the database named by cfg.PrimarySource.
func NewConnection(cfg *Config) (*Connection, error) {
	var driver, dsn string

	switch cfg.PrimarySource {
	case PrimaryPostgres:
		driver, dsn = DriverPostgres, cfg.databaseURL
	case PrimarySQLite:
		driver, dsn = DriverSQLite, cfg.SQLitePath
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoDatabaseConfigured, cfg.PrimarySource)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &Connection{DB: db, Driver: driver}, nil
}

// HealthCheck pings the database.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return ErrNoDatabaseConnection
	}

	return c.PingContext(ctx)
}

// Close closes the pool. Safe on a nil connection.
func (c *Connection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}

	return c.DB.Close()
}

// placeholder returns the n-th (1-based) bind parameter for the dialect.
func (c *Connection) placeholder(n int) string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}

	return "?"
}
