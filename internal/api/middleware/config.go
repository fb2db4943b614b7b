package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/salesdash-io/salesdash/internal/config"
)

// ErrInvalidRate indicates a non-positive requests-per-second limit.
var ErrInvalidRate = errors.New("rate limit must be positive")

// Config holds rate limiter configuration.
//
// Burst fields left at 0 are computed as 2 × rate.
type Config struct {
	GlobalRPS int // Default: 100
	ClientRPS int // Default: 20

	GlobalBurst int
	ClientBurst int

	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxClients      int           // Default: 10,000
}

// LoadConfig loads middleware config from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("SALESDASH_GLOBAL_RPS", defaultGlobalRPS),
		ClientRPS: config.GetEnvInt("SALESDASH_CLIENT_RPS", defaultClientRPS),

		GlobalBurst: config.GetEnvInt("SALESDASH_GLOBAL_BURST", 0),
		ClientBurst: config.GetEnvInt("SALESDASH_CLIENT_BURST", 0),

		CleanupInterval: config.GetEnvDuration(
			"SALESDASH_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("SALESDASH_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxClients:  config.GetEnvInt("SALESDASH_RATE_LIMIT_MAX_CLIENTS", maxClients),
	}
}

func (c *Config) Validate() error {
	if c.GlobalRPS <= 0 {
		return fmt.Errorf("%w: global %d", ErrInvalidRate, c.GlobalRPS)
	}

	if c.ClientRPS <= 0 {
		return fmt.Errorf("%w: client %d", ErrInvalidRate, c.ClientRPS)
	}

	return nil
}
