// Package aliasing maps free-text country and category spellings onto
// canonical values and groups countries into sales regions.
//
// The primary and secondary exports are maintained by different systems and
// spell the same geography or product category differently ("United States"
// vs "USA"). Without reconciliation these show up as separate filter values and
// split every grouped aggregate. Aliases are loaded from .salesdash.yaml.
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/salesdash-io/salesdash/internal/config"
)

// Config holds alias configuration loaded from .salesdash.yaml.
//
// Example:
//
//	country_aliases:
//	  United States: USA
//	  United Kingdom: UK
//	category_aliases:
//	  Drinks: Beverages
//	regions:
//	  Europe: [Germany, France, UK]
//	  North America: [USA, Canada, Mexico]
type Config struct {
	// CountryAliases maps a source spelling to the canonical country name.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	CountryAliases map[string]string `yaml:"country_aliases"`

	// CategoryAliases maps a source spelling to the canonical category name.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	CategoryAliases map[string]string `yaml:"category_aliases"`

	// Regions lists the canonical countries of each sales region. When the
	// section is absent DefaultRegions applies.
	Regions map[string][]string `yaml:"regions"`
}

// RegionOther is the region of every country no region lists.
const RegionOther = "Other"

// DefaultRegions is the regional grouping used for Northwind reporting.
var DefaultRegions = map[string][]string{
	"Europe": {
		"Germany", "UK", "France", "Spain", "Italy", "Sweden", "Finland", "Austria",
		"Belgium", "Denmark", "Ireland", "Norway", "Poland", "Portugal", "Switzerland",
	},
	"North America": {"USA", "Canada", "Mexico"},
	"South America": {"Brazil", "Argentina", "Venezuela"},
}

// DefaultConfigPath is the default location for the salesdash configuration file.
const DefaultConfigPath = ".salesdash.yaml"

// ConfigPathEnvVar is the environment variable name for custom config path.
const ConfigPathEnvVar = "SALESDASH_CONFIG_PATH"

func emptyConfig() *Config {
	return &Config{
		CountryAliases:  make(map[string]string),
		CategoryAliases: make(map[string]string),
		Regions:         DefaultRegions,
	}
}

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
func LoadConfig(path string) (*Config, error) {
	cfg := emptyConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, continuing without aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read config file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	// Decode into a fresh value: yaml.v3 merges into maps that are already set.
	cfg = &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse config file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return emptyConfig(), nil
	}

	// A section present but empty unmarshals to nil
	if cfg.CountryAliases == nil {
		cfg.CountryAliases = make(map[string]string)
	}

	if cfg.CategoryAliases == nil {
		cfg.CategoryAliases = make(map[string]string)
	}

	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path specified in SALESDASH_CONFIG_PATH
// environment variable. Falls back to ".salesdash.yaml" in current directory if not set.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
