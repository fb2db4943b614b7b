package canonicalization

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is the serial of 9999-12-31, the last day a workbook can hold.
const maxExcelSerial = 2958465

// dateLayouts are tried in order. Exports from the primary warehouse use ISO
// timestamps; the secondary export writes US month/day/year, sometimes with a
// two-digit year when saved from a spreadsheet.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
}

// ParseDate converts a cell value to a UTC time. Strings are tried against the
// known layouts, time.Time values pass through and numbers are read as Excel
// date serials (1900 system). ok is false when no date can be derived so that
// callers can impute a value.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}

		return t.UTC(), true
	case float64:
		if t < 1 || t > maxExcelSerial {
			return time.Time{}, false
		}

		parsed, err := excelize.ExcelDateToTime(t, false)
		if err != nil {
			return time.Time{}, false
		}

		return parsed.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}

		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	}

	return time.Time{}, false
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats t as YYYY-MM-DD in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// MonthKey formats t as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
