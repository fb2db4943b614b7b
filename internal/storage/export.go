package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

const exportSheet = "Transactions"

var exportHeader = []string{
	"OrderID", "OrderDate", "CustomerID", "CompanyName", "Country", "Region", "EmployeeName",
	"ProductID", "ProductName", "CategoryName", "Quantity", "UnitPrice", "Discount",
	"TotalAmount", "Source",
}

func exportCells(r analytics.DenormalizedRow) []any {
	return []any{
		r.OrderID, canonicalization.DayKey(r.OrderDate), r.CustomerID, r.CompanyName, r.Country, r.Region,
		r.EmployeeName, r.ProductID, r.ProductName, r.CategoryName, r.Quantity, r.UnitPrice,
		r.Discount, r.TotalAmount, r.Source.String(),
	}
}

// WriteCSV writes rows as UTF-8 CSV with a byte order mark, which spreadsheet
// tools need to detect the encoding.
func WriteCSV(w io.Writer, rows []analytics.DenormalizedRow) error {
	if _, err := w.Write(byteOrderMark); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(exportHeader))

	for _, r := range rows {
		for i, cell := range exportCells(r) {
			switch v := cell.(type) {
			case float64:
				record[i] = strconv.FormatFloat(v, 'f', -1, 64)
			case string:
				record[i] = v
			}
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteXLSX writes rows to a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []analytics.DenormalizedRow) error {
	f := excelize.NewFile()

	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}

	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := exportCells(r)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}

	return nil
}
