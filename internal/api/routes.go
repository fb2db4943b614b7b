package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/salesdash-io/salesdash/internal/api/middleware"
)

const (
	expectedURLParts       = 2
	contentTypeProblemJSON = "application/problem+json"
)

type (
	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string     `json:"status"`
		ServiceName string     `json:"serviceName"`
		Version     string     `json:"version"`
		Uptime      string     `json:"uptime,omitempty"`
		Snapshot    string     `json:"snapshotId,omitempty"`
		LoadedAt    *time.Time `json:"loadedAt,omitempty"`
		LastError   string     `json:"lastError,omitempty"`
	}

	// Route represents an HTTP route configuration with a path and handler.
	Route struct {
		Path    string           // The URL path for this route (e.g., "GET /ping")
		Handler http.HandlerFunc // The HTTP handler function for this route
	}
)

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Probes and scrapes, exempt from rate limiting
	s.registerPublicRoutes(
		mux,
		Route{"GET /ping", s.handlePing},
		Route{"GET /ready", s.handleReady},
		Route{"GET /health", s.handleHealth},
		Route{"GET /metrics", s.metrics.Handler().ServeHTTP},
	)

	mux.HandleFunc("GET /api/v1/filters", s.handleFilters)
	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/v1/reload", s.handleReload)
	mux.HandleFunc("GET /api/v1/transactions/export", s.handleExport)

	mux.HandleFunc("/", s.handleNotFound)
}

// registerPublicRoutes registers routes on mux and exempts their paths from
// rate limiting.
//
//	s.registerPublicRoutes(
//	    mux,
//	    Route{"GET /ping", s.handlePing},
//	)
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// "GET /ping" patterns match r.URL.Path "/ping"
		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("Malformed route path detected, ignoring route", slog.String("path", route.Path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handlePing responds to ping requests for basic server validation.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeText(w, r, http.StatusOK, "pong")
}

// handleReady answers 200 once a dataset snapshot is loaded and 503 before
// that or after a failed reload.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.dashboard.Status()
	if !status.Loaded {
		correlationID := middleware.GetCorrelationID(r.Context())

		attrs := []any{slog.String("correlation_id", correlationID)}
		if status.LastError != nil {
			attrs = append(attrs, slog.String("error", status.LastError.Error()))
		}

		s.logger.Warn("Readiness check failed: dataset not loaded", attrs...)
		s.writeText(w, r, http.StatusServiceUnavailable, "dataset not loaded")

		return
	}

	s.writeText(w, r, http.StatusOK, "ready")
}

// handleHealth returns detailed health status information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "healthy",
		ServiceName: "salesdash",
		Version:     Version,
		Uptime:      uptime,
	}

	status := s.dashboard.Status()
	if status.Loaded {
		loadedAt := status.LoadedAt
		health.Snapshot = status.SnapshotID
		health.LoadedAt = &loadedAt
	} else {
		health.Status = "degraded"
	}

	if status.LastError != nil {
		health.LastError = status.LastError.Error()
	}

	s.writeJSON(w, r, http.StatusOK, health)
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// writeJSON marshals v before touching headers so that an encoding failure can
// still produce a problem response.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	correlationID := middleware.GetCorrelationID(r.Context())

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Salesdash-Version", Version)
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeText(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Salesdash-Version", Version)
	w.WriteHeader(status)

	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
