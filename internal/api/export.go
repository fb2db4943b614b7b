package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/api/middleware"
	"github.com/salesdash-io/salesdash/internal/storage"
)

type exportFormat struct {
	contentType string
	write       func(io.Writer, []analytics.DenormalizedRow) error
}

var exportFormats = map[string]exportFormat{ //nolint: gochecknoglobals
	storage.FormatCSV: {
		contentType: "text/csv; charset=utf-8",
		write:       storage.WriteCSV,
	},
	storage.FormatXLSX: {
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       storage.WriteXLSX,
	},
}

// handleExport handles GET /api/v1/transactions/export. It accepts the
// dashboard's filter parameters plus format=csv|xlsx (default csv).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := strings.ToLower(q.Get("format"))
	if name == "" {
		name = storage.FormatCSV
	}

	format, ok := exportFormats[name]
	if !ok {
		WriteErrorResponse(w, r, s.logger, BadRequest(fmt.Sprintf("Invalid parameter 'format': %q is not csv or xlsx", name)))

		return
	}

	sel, err := parseSelection(q)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	rows, err := s.dashboard.Export(sel)
	if err != nil {
		s.writeDashboardError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transactions.%s"`, name))
	w.WriteHeader(http.StatusOK)

	if err := format.write(w, rows); err != nil {
		// Headers are already sent.
		s.logger.Error("Failed to write export",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("format", name),
			slog.Int("rows", len(rows)),
			slog.String("error", err.Error()),
		)
	}
}
