package analytics

import (
	"time"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

type (
	// ViewModel is everything the presentation layer paints for one filter.
	ViewModel struct {
		SnapshotID    string            `json:"snapshotId"`
		Filter        AppliedFilter     `json:"filter"`
		KPIs          KPIs              `json:"kpis"`
		DailyRevenue  []Group           `json:"dailyRevenue"`
		TopCountries  []Group           `json:"topCountries"`
		TopProducts   []Group           `json:"topProducts"`
		CategoryShare []Group           `json:"categoryShare"`
		RegionShare   []Group           `json:"regionShare"`
		CountrySales  []CountrySales    `json:"countrySales"`
		TopCustomers  []Group           `json:"topCustomers"`
		Monthly       []MonthlyPoint    `json:"monthly"`
		Scatter       []ScatterPoint    `json:"scatter"`
		Surface       Matrix            `json:"surface"`
		ProductBars   []ProductMarker   `json:"productBars"`
		Recent        []DenormalizedRow `json:"recent"`
		Summary       SummaryStats      `json:"summary"`
	}

	// AppliedFilter echoes the resolved filter back to the client.
	AppliedFilter struct {
		Start      string   `json:"start"`
		End        string   `json:"end"`
		Countries  []string `json:"countries"`
		Categories []string `json:"categories"`
	}
)

// ComputeView filters the snapshot rows and computes every aggregate from
// scratch. It is pure and deterministic for a given snapshot and filter.
func ComputeView(s *Snapshot, f Filter) ViewModel {
	rows := Apply(s.Rows(), f)
	kpis := ComputeKPIs(rows, s.CustomersIn(f.Countries))

	return ViewModel{
		SnapshotID:    s.ID.String(),
		Filter:        describe(f),
		KPIs:          kpis,
		DailyRevenue:  DailyRevenue(rows),
		TopCountries:  TopGroups(GroupSum(rows, ByCountry), TopN),
		TopProducts:   TopGroups(GroupSum(rows, ByProduct), TopN),
		CategoryShare: GroupSum(rows, ByCategory),
		RegionShare:   TopGroups(GroupSum(rows, ByRegion), -1),
		CountrySales:  SalesByCountry(rows),
		TopCustomers:  TopGroups(GroupSum(rows, ByCustomer), TopN),
		Monthly:       MonthlySeries(rows),
		Scatter:       CountryCategoryMonth(rows),
		Surface:       CountryCategoryMatrix(rows),
		ProductBars:   TopProductMarkers(rows, TopProductsN),
		Recent:        RecentTransactions(rows, RecentRowsLimit),
		Summary:       Summarize(rows, kpis.OrderStdDev),
	}
}

// FilteredRows returns the rows of the snapshot that pass f, for export.
func FilteredRows(s *Snapshot, f Filter) []DenormalizedRow {
	return Apply(s.Rows(), f)
}

func describe(f Filter) AppliedFilter {
	return AppliedFilter{
		Start:      dayOrEmpty(f.Start),
		End:        dayOrEmpty(f.End),
		Countries:  sortedKeys(f.Countries),
		Categories: sortedKeys(f.Categories),
	}
}

func dayOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return canonicalization.DayKey(t)
}
