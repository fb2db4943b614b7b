// Package main runs the salesdash service: it loads the primary and secondary
// sales exports into one in-memory dataset and serves the dashboard API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/salesdash-io/salesdash/internal/aliasing"
	"github.com/salesdash-io/salesdash/internal/api"
	"github.com/salesdash-io/salesdash/internal/api/middleware"
	"github.com/salesdash-io/salesdash/internal/ingestion"
	"github.com/salesdash-io/salesdash/internal/metrics"
	"github.com/salesdash-io/salesdash/internal/session"
	"github.com/salesdash-io/salesdash/internal/storage"
)

const name = "salesdash"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s %s\n", name, api.Version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting salesdash service",
		slog.String("service", name),
		slog.String("version", api.Version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	middlewareConfig := middleware.LoadConfig()
	if err := middlewareConfig.Validate(); err != nil {
		logger.Error("Invalid rate limiter configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Closed by server shutdown
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("global_burst", middlewareConfig.GlobalBurst),
		slog.Int("client_rps", middlewareConfig.ClientRPS),
		slog.Int("client_burst", middlewareConfig.ClientBurst),
	)

	storageConfig := storage.LoadConfig()

	source, sourceCloser, err := storage.OpenSource(storageConfig)
	if err != nil {
		logger.Error("Failed to open data source",
			slog.String("primary_source", storageConfig.PrimarySource),
			slog.String("error", err.Error()),
		)
		_ = rateLimiter.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	logger.Info("Data source opened",
		slog.String("data_dir", storageConfig.DataDir),
		slog.String("source_format", storageConfig.SourceFormat),
		slog.String("primary_source", storageConfig.PrimarySource),
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Duration("load_timeout", storageConfig.LoadTimeout),
	)

	aliasConfig, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("Failed to load alias configuration, continuing without aliases",
			slog.String("error", err.Error()))

		aliasConfig = &aliasing.Config{}
	}

	resolver := aliasing.NewResolver(aliasConfig)
	logger.Info("Alias resolver initialized", slog.Int("aliases", resolver.Count()))

	registry := metrics.NewRegistry()

	dashboard := session.New(source,
		session.WithLogger(logger),
		session.WithMetrics(registry),
		session.WithBuilder(ingestion.NewBuilder(ingestion.NewNormalizer(resolver), logger)),
		session.WithLoadTimeout(storageConfig.LoadTimeout),
	)

	// A failed initial load leaves the service up and unready; POST /api/v1/reload recovers.
	if _, err := dashboard.Reload(context.Background()); err != nil {
		logger.Error("Initial dataset load failed, waiting for manual reload",
			slog.String("error", err.Error()))
	}

	server := api.NewServer(serverConfig, dashboard, registry, rateLimiter, sourceCloser)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("salesdash service stopped")
}
