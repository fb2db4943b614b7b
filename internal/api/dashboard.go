package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/api/middleware"
	"github.com/salesdash-io/salesdash/internal/config"
	"github.com/salesdash-io/salesdash/internal/ingestion"
	"github.com/salesdash-io/salesdash/internal/session"
)

type (
	// Dashboard is the session surface the HTTP layer needs. *session.Session
	// implements it.
	Dashboard interface {
		View(ctx context.Context, sel analytics.Selection) (session.Result, error)
		FilterOptions() (analytics.FilterOptions, error)
		Reload(ctx context.Context) (*ingestion.BuildReport, error)
		Export(sel analytics.Selection) ([]analytics.DenormalizedRow, error)
		Status() session.Status
	}

	// DashboardResponse is the view model plus the generation that produced it.
	// Clients that fire overlapping requests keep the highest generation.
	DashboardResponse struct {
		analytics.ViewModel

		Generation uint64 `json:"generation"`
		Stale      bool   `json:"stale"`
	}

	// ReloadResponse reports what a manual reload loaded.
	ReloadResponse struct {
		SnapshotID string                 `json:"snapshotId"`
		LoadedAt   time.Time              `json:"loadedAt"`
		Report     *ingestion.BuildReport `json:"report"`
	}

	// paramError represents a query parameter validation error.
	paramError struct {
		param string
		msg   string
	}
)

func (e *paramError) Error() string {
	return "Invalid parameter '" + e.param + "': " + e.msg
}

// handleFilters handles GET /api/v1/filters.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	options, err := s.dashboard.FilterOptions()
	if err != nil {
		s.writeDashboardError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, options)
}

// handleDashboard handles GET /api/v1/dashboard.
//
// Query Parameters:
//   - start, end: YYYY-MM-DD, inclusive; default to the dataset's date bounds
//   - countries, categories: comma-separated lists
//   - allCountries, allCategories: booleans; default true when the matching
//     list is absent
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	result, err := s.dashboard.View(r.Context(), sel)
	if err != nil {
		s.writeDashboardError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, DashboardResponse{
		ViewModel:  result.View,
		Generation: result.Generation,
		Stale:      result.Stale,
	})
}

// handleReload handles POST /api/v1/reload. The reload outlives a client
// disconnect; the session's load timeout bounds it.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	report, err := s.dashboard.Reload(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("Manual reload failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, ServiceUnavailable(fmt.Sprintf("Failed to load data: %v", err)))

		return
	}

	status := s.dashboard.Status()

	s.logger.Info("Manual reload completed",
		slog.String("correlation_id", correlationID),
		slog.String("snapshot_id", status.SnapshotID),
		slog.Int("facts", report.Facts),
	)

	s.writeJSON(w, r, http.StatusOK, ReloadResponse{
		SnapshotID: status.SnapshotID,
		LoadedAt:   status.LoadedAt,
		Report:     report,
	})
}

// writeDashboardError maps session errors to problem responses.
func (s *Server) writeDashboardError(w http.ResponseWriter, r *http.Request, err error) {
	correlationID := middleware.GetCorrelationID(r.Context())

	switch {
	case errors.Is(err, session.ErrNotLoaded):
		detail := "No data loaded. Fix the data source and trigger a reload."
		if errors.Is(err, ingestion.ErrSourceUnavailable) {
			detail = fmt.Sprintf("Failed to load data: %v", err)
		}

		WriteErrorResponse(w, r, s.logger, ServiceUnavailable(detail))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Dashboard request abandoned",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, ServiceUnavailable("Request cancelled"))
	default:
		s.logger.Error("Dashboard request failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to compute dashboard"))
	}
}

// parseSelection converts dashboard query parameters into a selection. An
// explicit but empty list selects nothing. Values containing a comma can only
// be passed through the repeatable country and category parameters.
func parseSelection(q url.Values) (analytics.Selection, error) {
	var sel analytics.Selection

	start, err := parseDay(q, "start")
	if err != nil {
		return sel, err
	}

	end, err := parseDay(q, "end")
	if err != nil {
		return sel, err
	}

	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return sel, &paramError{param: "end", msg: "must not be before start"}
	}

	sel.Start, sel.End = start, end

	sel.AllCountries, err = parseAll(q, "allCountries", "countries", "country")
	if err != nil {
		return sel, err
	}

	sel.AllCategories, err = parseAll(q, "allCategories", "categories", "category")
	if err != nil {
		return sel, err
	}

	sel.Countries = parseList(q, "countries", "country")
	sel.Categories = parseList(q, "categories", "category")

	return sel, nil
}

func parseDay(q url.Values, param string) (time.Time, error) {
	v := q.Get(param)
	if v == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, &paramError{param: param, msg: "must be a date in YYYY-MM-DD format"}
	}

	return t, nil
}

// parseList joins the comma-separated list param with every value of the
// repeatable single param, which is taken verbatim.
func parseList(q url.Values, list, single string) []string {
	values := config.ParseCommaSeparatedList(q.Get(list))

	for _, v := range q[single] {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}

func parseAll(q url.Values, flag, list, single string) (bool, error) {
	if !q.Has(flag) {
		return !q.Has(list) && !q.Has(single), nil
	}

	all, err := strconv.ParseBool(q.Get(flag))
	if err != nil {
		return false, &paramError{param: flag, msg: "must be true or false"}
	}

	return all, nil
}
