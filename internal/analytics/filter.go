package analytics

import (
	"time"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

type (
	// Filter is a conjunction of a calendar-day range and two membership sets.
	// An empty set matches nothing.
	Filter struct {
		Start      time.Time
		End        time.Time
		Countries  map[string]struct{}
		Categories map[string]struct{}
	}

	// Selection is what a filter UI submits. When AllCountries is set the
	// explicit Countries list is ignored and every known country applies;
	// categories work the same way. A zero Start or End falls back to the
	// snapshot's date bounds.
	Selection struct {
		Start         time.Time
		End           time.Time
		AllCountries  bool
		Countries     []string
		AllCategories bool
		Categories    []string
	}
)

// NewFilter builds a Filter. Start and End are truncated to their calendar day
// in UTC and both ends are inclusive.
func NewFilter(start, end time.Time, countries, categories []string) Filter {
	return Filter{
		Start:      canonicalization.Day(start),
		End:        canonicalization.Day(end),
		Countries:  toSet(countries),
		Categories: toSet(categories),
	}
}

// Match reports whether a row passes every predicate.
func (f Filter) Match(r DenormalizedRow) bool {
	day := canonicalization.Day(r.OrderDate)
	if day.Before(f.Start) || day.After(f.End) {
		return false
	}

	if _, ok := f.Countries[r.Country]; !ok {
		return false
	}

	_, ok := f.Categories[r.CategoryName]

	return ok
}

// Apply returns the rows matching f in their original order. The input is not
// modified and the result is never nil.
func Apply(rows []DenormalizedRow, f Filter) []DenormalizedRow {
	out := make([]DenormalizedRow, 0, len(rows))

	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}

	return out
}

// Resolve turns a UI selection into a Filter against this snapshot.
func (s *Snapshot) Resolve(sel Selection) Filter {
	start, end := sel.Start, sel.End

	if lo, hi, ok := s.DateBounds(); ok {
		if start.IsZero() {
			start = lo
		}

		if end.IsZero() {
			end = hi
		}
	}

	countries := sel.Countries
	if sel.AllCountries {
		countries = s.countries
	}

	categories := sel.Categories
	if sel.AllCategories {
		categories = s.categories
	}

	return NewFilter(start, end, countries, categories)
}

// AllSelection selects every country and category over the full date range.
func AllSelection() Selection {
	return Selection{AllCountries: true, AllCategories: true}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}
