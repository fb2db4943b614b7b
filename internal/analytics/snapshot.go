package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
	"github.com/salesdash-io/salesdash/internal/ingestion"
)

type (
	// Snapshot is the immutable result of one successful load: the reconciled
	// tables, their indexes and the denormalized rows. Safe for concurrent
	// readers.
	Snapshot struct {
		ID       uuid.UUID
		LoadedAt time.Time
		Report   *ingestion.BuildReport

		tables     *ingestion.Tables
		index      *Index
		rows       []DenormalizedRow
		countries  []string
		categories []string
		minDate    time.Time
		maxDate    time.Time
	}

	// FilterOptions lists the values a filter UI offers.
	FilterOptions struct {
		MinDate    string   `json:"minDate,omitempty"`
		MaxDate    string   `json:"maxDate,omitempty"`
		Countries  []string `json:"countries"`
		Categories []string `json:"categories"`
	}
)

// NewSnapshot indexes and denormalizes tables once.
func NewSnapshot(tables *ingestion.Tables, report *ingestion.BuildReport, loadedAt time.Time) *Snapshot {
	if tables == nil {
		tables = &ingestion.Tables{}
	}

	if report == nil {
		report = &ingestion.BuildReport{}
	}

	s := &Snapshot{
		ID:       uuid.New(),
		LoadedAt: loadedAt.UTC(),
		Report:   report,
		tables:   tables,
		index:    NewIndex(tables.Customers, tables.Products, tables.Employees),
	}

	s.rows = s.index.resolveAll(tables.Facts)

	countries := make(map[string]struct{})
	for _, c := range tables.Customers {
		countries[orUnknown(c.Country)] = struct{}{}
	}

	categories := make(map[string]struct{})
	for _, p := range tables.Products {
		categories[orUnknown(p.CategoryName)] = struct{}{}
	}

	// Rows that fail to resolve carry "Unknown"; offering it keeps them reachable.
	for i, r := range s.rows {
		countries[r.Country] = struct{}{}
		categories[r.CategoryName] = struct{}{}

		if i == 0 || r.OrderDate.Before(s.minDate) {
			s.minDate = r.OrderDate
		}

		if i == 0 || r.OrderDate.After(s.maxDate) {
			s.maxDate = r.OrderDate
		}
	}

	s.countries = sortedKeys(countries)
	s.categories = sortedKeys(categories)

	return s
}

// Tables returns the reconciled tables. Callers must not mutate them.
func (s *Snapshot) Tables() *ingestion.Tables {
	return s.tables
}

// Rows returns the denormalized fact rows. Callers must not mutate them.
func (s *Snapshot) Rows() []DenormalizedRow {
	return s.rows
}

// Index returns the dimension index.
func (s *Snapshot) Index() *Index {
	return s.index
}

// Countries returns the sorted distinct country values.
func (s *Snapshot) Countries() []string {
	return append([]string(nil), s.countries...)
}

// Categories returns the sorted distinct category values.
func (s *Snapshot) Categories() []string {
	return append([]string(nil), s.categories...)
}

// DateBounds returns the earliest and latest order dates. ok is false when the
// snapshot has no facts.
func (s *Snapshot) DateBounds() (minDate, maxDate time.Time, ok bool) {
	if len(s.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}

	return s.minDate, s.maxDate, true
}

// FilterOptions returns the values a filter UI should offer, everything checked
// by default.
func (s *Snapshot) FilterOptions() FilterOptions {
	opts := FilterOptions{
		Countries:  s.Countries(),
		Categories: s.Categories(),
	}

	if lo, hi, ok := s.DateBounds(); ok {
		opts.MinDate = canonicalization.DayKey(lo)
		opts.MaxDate = canonicalization.DayKey(hi)
	}

	return opts
}

// CustomersIn counts customers whose country is in countries, regardless of
// any date range.
func (s *Snapshot) CustomersIn(countries map[string]struct{}) int {
	n := 0

	for _, c := range s.tables.Customers {
		if _, ok := countries[orUnknown(c.Country)]; ok {
			n++
		}
	}

	return n
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
