package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/salesdash-io/salesdash/internal/config"
)

var (
	ErrDatabaseURLEmpty    = errors.New("DATABASE_URL cannot be empty")
	ErrMigrationTableEmpty = errors.New("MIGRATION_TABLE cannot be empty")
	ErrMigrationsPath      = errors.New("migrations directory does not exist")
	ErrUnknownCommand      = errors.New("unknown command")
)

// Config holds all configuration for the migration tool
type Config struct {
	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string

	// MigrationsPath overrides the embedded migrations when set
	MigrationsPath string

	// MigrationTable is the name of the table to track migrations
	MigrationTable string
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	c := &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationsPath: config.GetEnvStr("MIGRATIONS_PATH", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return c, nil
}

// Validate checks the configuration and resolves MigrationsPath to an absolute path.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if strings.TrimSpace(c.MigrationTable) == "" {
		return ErrMigrationTableEmpty
	}

	if c.MigrationsPath == "" {
		return nil
	}

	absPath, err := filepath.Abs(c.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMigrationsPath, absPath)
	}

	c.MigrationsPath = absPath

	return nil
}

// Embedded reports whether the embedded migrations are used.
func (c *Config) Embedded() bool {
	return c.MigrationsPath == ""
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	source := "embedded"
	if !c.Embedded() {
		source = c.MigrationsPath
	}

	return fmt.Sprintf("Config{DatabaseURL: %s, Migrations: %s, MigrationTable: %s}",
		maskDatabaseURL(c.DatabaseURL), source, c.MigrationTable)
}

// maskDatabaseURL replaces the password of a URL with ***.
func maskDatabaseURL(url string) string {
	schemeEnd := strings.Index(url, "://")
	if schemeEnd == -1 {
		return url
	}

	rest := url[schemeEnd+3:]

	authorityEnd := strings.IndexAny(rest, "/?#")
	if authorityEnd == -1 {
		authorityEnd = len(rest)
	}

	at := strings.LastIndex(rest[:authorityEnd], "@")
	if at == -1 {
		return url
	}

	colon := strings.Index(rest[:at], ":")
	if colon == -1 || colon == at-1 {
		return url
	}

	return url[:schemeEnd+3] + rest[:colon+1] + "***" + rest[at:]
}
