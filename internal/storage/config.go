package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/salesdash-io/salesdash/internal/config"
)

// Source file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Where the primary dimensions and facts are read from. The secondary export is
// always read from files.
const (
	PrimaryFiles    = "files"
	PrimaryPostgres = "postgres"
	PrimarySQLite   = "sqlite"
)

const (
	defaultDataDir         = "data"
	defaultSQLitePath      = "data/salesdash.db"
	defaultLoadTimeout     = 2 * time.Minute
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

var (
	// ErrDatabaseURLEmpty is returned when the database url is an empty string.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")
	// ErrDataDirEmpty is returned when no data directory is configured.
	ErrDataDirEmpty = errors.New("data directory cannot be empty")
	// ErrInvalidSourceFormat is returned for a file format other than csv or xlsx.
	ErrInvalidSourceFormat = errors.New("invalid source format")
	// ErrInvalidPrimarySource is returned for an unknown primary source kind.
	ErrInvalidPrimarySource = errors.New("invalid primary source")
	// ErrSQLitePathEmpty is returned when the sqlite primary source has no file.
	ErrSQLitePathEmpty = errors.New("sqlite path cannot be empty")
	// ErrInvalidLoadTimeout is returned for a negative load timeout.
	ErrInvalidLoadTimeout = errors.New("load timeout cannot be negative")
)

// Config holds data source and database connection configuration.
type Config struct {
	DataDir       string        // Directory holding the exported files
	SourceFormat  string        // csv or xlsx
	PrimarySource string        // files, postgres or sqlite
	SQLitePath    string        // Database file when PrimarySource is sqlite
	LoadTimeout   time.Duration // Upper bound for one full load

	databaseURL     string
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of connections
	ConnMaxIdleTime time.Duration // Maximum idle time for connections
}

// LoadConfig loads source configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		DataDir:       config.GetEnvStr("SALESDASH_DATA_DIR", defaultDataDir),
		SourceFormat:  strings.ToLower(config.GetEnvStr("SALESDASH_SOURCE_FORMAT", FormatCSV)),
		PrimarySource: strings.ToLower(config.GetEnvStr("SALESDASH_PRIMARY_SOURCE", PrimaryFiles)),
		SQLitePath:    config.GetEnvStr("SALESDASH_SQLITE_PATH", defaultSQLitePath),
		LoadTimeout:   config.GetEnvDuration("SALESDASH_LOAD_TIMEOUT", defaultLoadTimeout),

		databaseURL:     config.GetEnvStr("DATABASE_URL", ""), // DatabaseURL is private for obvious reasons.
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// Validate checks the configuration. The database URL is only required when
// the primary tables come from PostgreSQL.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrDataDirEmpty
	}

	if c.SourceFormat != FormatCSV && c.SourceFormat != FormatXLSX {
		return fmt.Errorf("%w: %q (expected csv or xlsx)", ErrInvalidSourceFormat, c.SourceFormat)
	}

	if c.LoadTimeout < 0 {
		return ErrInvalidLoadTimeout
	}

	switch c.PrimarySource {
	case PrimaryFiles:
	case PrimaryPostgres:
		if strings.TrimSpace(c.databaseURL) == "" {
			return ErrDatabaseURLEmpty
		}
	case PrimarySQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return ErrSQLitePathEmpty
		}
	default:
		return fmt.Errorf("%w: %q (expected files, postgres or sqlite)", ErrInvalidPrimarySource, c.PrimarySource)
	}

	return nil
}

// UsesDatabase reports whether the primary tables come from a SQL database.
func (c *Config) UsesDatabase() bool {
	return c.PrimarySource == PrimaryPostgres || c.PrimarySource == PrimarySQLite
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	// Find the scheme separator
	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	// Find the last @ which separates userinfo from host
	afterScheme := c.databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		// No @ found, no userinfo
		return c.databaseURL
	}

	// Extract userinfo
	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		// No password
		return c.databaseURL
	}

	// Found username:password
	username := userInfo[:colonIndex]
	password := userInfo[colonIndex+1:]

	if password == "" {
		// Empty password, don't mask
		return c.databaseURL
	}

	// Build masked URL
	scheme := c.databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
