package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/salesdash-io/salesdash/internal/ingestion"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

var (
	// ErrEmptyTable is returned for a file without a header row.
	ErrEmptyTable = errors.New("no header row found")
	// ErrNoSheets is returned for a workbook without sheets.
	ErrNoSheets = errors.New("workbook has no sheets")
)

// FileSource reads one file per resource from a directory: <dir>/<resource>.csv
// or <dir>/<resource>.xlsx. Cells that parse as numbers become float64 and
// empty cells are left out of the record.
type FileSource struct {
	dir    string
	format string
}

// NewFileSource creates a source over dir. format is FormatCSV or FormatXLSX.
func NewFileSource(dir, format string) (*FileSource, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrDataDirEmpty
	}

	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceFormat, format)
	}

	return &FileSource{dir: dir, format: format}, nil
}

// Path returns the file backing resource.
func (s *FileSource) Path(resource ingestion.Resource) string {
	return filepath.Join(s.dir, resource.String()+"."+s.format)
}

// Fetch implements ingestion.Source.
func (s *FileSource) Fetch(ctx context.Context, resource ingestion.Resource) ([]ingestion.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(s.Path(resource))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", resource, err)
	}

	var table [][]string

	switch s.format {
	case FormatXLSX:
		table, err = readXLSX(payload)
	default:
		table, err = readCSV(payload)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", resource, err)
	}

	return toRecords(table)
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var rows [][]string

	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		rows = append(rows, row)
	}
}

func readXLSX(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	// Raw values keep dates as serials instead of the workbook's display format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return rows, nil
}

// toRecords maps every row after the header onto a record keyed by header.
// Blank rows are skipped; short rows leave the trailing columns absent.
func toRecords(table [][]string) ([]ingestion.Record, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}

	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]ingestion.Record, 0, len(table)-1)

	for _, row := range table[1:] {
		rec := make(ingestion.Record, len(headers))

		for i, cell := range row {
			if i >= len(headers) {
				break
			}

			if headers[i] == "" {
				continue
			}

			if v, ok := coerce(cell); ok {
				rec[headers[i]] = v
			}
		}

		if len(rec) == 0 {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// coerce turns numeric-looking text into float64. ok is false for blank cells.
func coerce(cell string) (any, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, false
	}

	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}

	return cell, true
}
