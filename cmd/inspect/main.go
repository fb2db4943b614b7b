// Package main provides salesdash-inspect, a command-line view of one load:
// what was read, what was dropped, and the dashboard figures for a filter.
//
// Usage:
//
//	inspect [flags]
//
// Flags:
//
//	-start, -end          inclusive YYYY-MM-DD bounds (default: dataset bounds)
//	-countries            comma-separated countries (default: all)
//	-categories           comma-separated categories (default: all)
//	-format               table or json (default: table)
//	-export               write the filtered rows to a .csv or .xlsx file
//	-import               copy the primary files into the configured database and exit
//
// Data source settings come from the same SALESDASH_* environment variables as
// the service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/salesdash-io/salesdash/internal/aliasing"
	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/config"
	"github.com/salesdash-io/salesdash/internal/ingestion"
	"github.com/salesdash-io/salesdash/internal/session"
	"github.com/salesdash-io/salesdash/internal/storage"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	// ErrInvalidFormat is returned for an output format other than table or json.
	ErrInvalidFormat = errors.New("invalid output format")
	// ErrInvalidExportPath is returned when the export file extension is not csv or xlsx.
	ErrInvalidExportPath = errors.New("export path must end in .csv or .xlsx")
)

type options struct {
	start      string
	end        string
	countries  string
	categories string
	format     string
	exportPath string
	importOnly bool
}

func main() {
	var opts options

	flag.StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "", "last day, YYYY-MM-DD")
	flag.StringVar(&opts.countries, "countries", "", "comma-separated countries (default: all)")
	flag.StringVar(&opts.categories, "categories", "", "comma-separated categories (default: all)")
	flag.StringVar(&opts.format, "format", formatTable, "output format: table or json")
	flag.StringVar(&opts.exportPath, "export", "", "write filtered rows to a .csv or .xlsx file")
	flag.BoolVar(&opts.importOnly, "import", false, "copy primary files into the configured database and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("SALESDASH_LOG_LEVEL", slog.LevelWarn),
	}))

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error("inspect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer, logger *slog.Logger) error {
	cfg := storage.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}

	if opts.importOnly {
		return importPrimary(ctx, cfg, w)
	}

	sel, err := parseSelection(opts)
	if err != nil {
		return err
	}

	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, opts.format)
	}

	source, closer, err := storage.OpenSource(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	aliasConfig, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	builder := ingestion.NewBuilder(ingestion.NewNormalizer(aliasing.NewResolver(aliasConfig)), logger)
	dashboard := session.New(source,
		session.WithLogger(logger),
		session.WithBuilder(builder),
		session.WithLoadTimeout(cfg.LoadTimeout),
	)

	report, err := dashboard.Reload(ctx)
	if err != nil {
		return err
	}

	result, err := dashboard.View(ctx, sel)
	if err != nil {
		return err
	}

	if opts.exportPath != "" {
		rows, err := dashboard.Export(sel)
		if err != nil {
			return err
		}

		if err := exportRows(opts.exportPath, rows); err != nil {
			return err
		}
	}

	if opts.format == formatJSON {
		return renderJSON(w, report, result.View)
	}

	renderReport(w, report)
	renderView(w, result.View)

	return nil
}

func parseSelection(opts options) (analytics.Selection, error) {
	sel := analytics.Selection{
		AllCountries:  opts.countries == "",
		Countries:     config.ParseCommaSeparatedList(opts.countries),
		AllCategories: opts.categories == "",
		Categories:    config.ParseCommaSeparatedList(opts.categories),
	}

	var err error

	if opts.start != "" {
		if sel.Start, err = time.Parse(time.DateOnly, opts.start); err != nil {
			return sel, fmt.Errorf("invalid -start: %w", err)
		}
	}

	if opts.end != "" {
		if sel.End, err = time.Parse(time.DateOnly, opts.end); err != nil {
			return sel, fmt.Errorf("invalid -end: %w", err)
		}
	}

	return sel, nil
}

func exportRows(path string, rows []analytics.DenormalizedRow) (err error) {
	var write func(io.Writer, []analytics.DenormalizedRow) error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = storage.WriteCSV
	case ".xlsx":
		write = storage.WriteXLSX
	default:
		return fmt.Errorf("%w: %s", ErrInvalidExportPath, path)
	}

	f, err := os.Create(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return write(f, rows)
}

// importPrimary loads the four primary tables from the data directory into
// the configured warehouse database.
func importPrimary(ctx context.Context, cfg *storage.Config, w io.Writer) error {
	files, err := storage.NewFileSource(cfg.DataDir, cfg.SourceFormat)
	if err != nil {
		return err
	}

	conn, err := storage.NewConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	warehouse, err := storage.NewSQLSource(conn)
	if err != nil {
		return err
	}

	counts, err := warehouse.Import(ctx, files)
	if err != nil {
		return err
	}

	renderImport(w, conn.Driver, counts)

	return nil
}
