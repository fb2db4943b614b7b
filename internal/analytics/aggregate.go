package analytics

import (
	"math"
	"sort"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

// Ranking sizes used by the dashboard.
const (
	TopN            = 10
	TopProductsN    = 15
	RecentRowsLimit = 20
)

type (
	// KPIs are the scalar cards. Ratios with a zero denominator are 0.
	KPIs struct {
		TotalRevenue       float64 `json:"totalRevenue"`
		TotalOrders        int     `json:"totalOrders"`
		AvgOrderValue      float64 `json:"avgOrderValue"`
		TotalCustomers     int     `json:"totalCustomers"`
		TotalQuantity      float64 `json:"totalQuantity"`
		AvgItemsPerOrder   float64 `json:"avgItemsPerOrder"`
		OrderStdDev        float64 `json:"orderStdDev"`
		RevenuePerCustomer float64 `json:"revenuePerCustomer"`
		FilteredRecords    int     `json:"filteredRecords"`
	}

	// Group is one bucket of a grouped sum. Label is the display name and equals
	// Key unless the key is an identifier.
	Group struct {
		Key   string  `json:"key"`
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}

	// MonthlyPoint carries revenue and distinct order count for one month.
	MonthlyPoint struct {
		Month   string  `json:"month"`
		Revenue float64 `json:"revenue"`
		Orders  int     `json:"orders"`
	}

	// ScatterPoint is one country × category × month cell.
	ScatterPoint struct {
		Country  string  `json:"country"`
		Category string  `json:"category"`
		Month    string  `json:"month"`
		Revenue  float64 `json:"revenue"`
		Quantity float64 `json:"quantity"`
	}

	// Matrix is a revenue cross-tab; Values[i][j] belongs to Countries[i] and
	// Categories[j].
	Matrix struct {
		Countries  []string    `json:"countries"`
		Categories []string    `json:"categories"`
		Values     [][]float64 `json:"values"`
	}

	// ProductMarker places a product by revenue, quantity and order count.
	ProductMarker struct {
		Product  string  `json:"product"`
		Revenue  float64 `json:"revenue"`
		Quantity float64 `json:"quantity"`
		Orders   int     `json:"orders"`
	}

	// CountrySales is the per-country line of the sales summary.
	CountrySales struct {
		Country  string  `json:"country"`
		Region   string  `json:"region"`
		Revenue  float64 `json:"revenue"`
		Orders   int     `json:"orders"`
		Quantity float64 `json:"quantity"`
	}

	// SummaryStats describes the distribution of TotalAmount over the rows.
	// StdDev is the per-order dispersion, the same value as KPIs.OrderStdDev.
	SummaryStats struct {
		Total   float64 `json:"total"`
		Average float64 `json:"average"`
		Min     float64 `json:"min"`
		Max     float64 `json:"max"`
		StdDev  float64 `json:"stdDev"`
	}
)

// ComputeKPIs computes the scalar cards. totalCustomers is supplied by the
// caller because it depends on the dimension table, not on the filtered rows.
func ComputeKPIs(rows []DenormalizedRow, totalCustomers int) KPIs {
	k := KPIs{TotalCustomers: totalCustomers, FilteredRecords: len(rows)}

	orderTotals := OrderTotals(rows)
	k.TotalOrders = len(orderTotals)

	for _, r := range rows {
		k.TotalRevenue += r.TotalAmount
		k.TotalQuantity += r.Quantity
	}

	k.AvgOrderValue = ratio(k.TotalRevenue, float64(k.TotalOrders))
	k.AvgItemsPerOrder = ratio(k.TotalQuantity, float64(k.TotalOrders))
	k.RevenuePerCustomer = ratio(k.TotalRevenue, float64(totalCustomers))
	k.OrderStdDev = StdDev(orderTotals)

	return k
}

// OrderTotals sums TotalAmount per order, in first-seen order.
func OrderTotals(rows []DenormalizedRow) []float64 {
	groups := GroupSum(rows, func(r DenormalizedRow) (string, string) { return r.OrderID, r.OrderID })

	totals := make([]float64, len(groups))
	for i, g := range groups {
		totals[i] = g.Value
	}

	return totals
}

// StdDev returns the population standard deviation, 0 for an empty input.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	return math.Sqrt(variance / float64(len(values)))
}

// GroupSum sums TotalAmount per key. Groups keep first-seen order; the label of
// a group is the one seen first.
func GroupSum(rows []DenormalizedRow, key func(DenormalizedRow) (key, label string)) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, r := range rows {
		k, label := key(r)

		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k, Label: label})
		}

		groups[i].Value += r.TotalAmount
	}

	return groups
}

// TopGroups sorts groups by value descending and keeps the first n. Ties keep
// their input order.
func TopGroups(groups []Group, n int) []Group {
	sorted := append([]Group(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted
}

// SortedByKey returns groups ordered by key ascending.
func SortedByKey(groups []Group) []Group {
	sorted := append([]Group(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	return sorted
}

// Grouping keys.
var (
	ByDay = func(r DenormalizedRow) (string, string) {
		k := canonicalization.DayKey(r.OrderDate)

		return k, k
	}
	ByMonth = func(r DenormalizedRow) (string, string) {
		k := canonicalization.MonthKey(r.OrderDate)

		return k, k
	}
	ByCountry  = func(r DenormalizedRow) (string, string) { return r.Country, r.Country }
	ByRegion   = func(r DenormalizedRow) (string, string) { return r.Region, r.Region }
	ByCategory = func(r DenormalizedRow) (string, string) { return r.CategoryName, r.CategoryName }
	ByProduct  = func(r DenormalizedRow) (string, string) { return r.ProductName, r.ProductName }
	// ByCustomer keys on the identifier so that two customers sharing a company
	// name stay apart.
	ByCustomer = func(r DenormalizedRow) (string, string) { return r.CustomerID, r.CompanyName }
)

// DailyRevenue sums revenue per calendar day, ascending by date.
func DailyRevenue(rows []DenormalizedRow) []Group {
	return SortedByKey(GroupSum(rows, ByDay))
}

// MonthlySeries sums revenue and counts distinct orders per month, ascending.
func MonthlySeries(rows []DenormalizedRow) []MonthlyPoint {
	orders := make(map[string]map[string]struct{})
	revenue := make(map[string]float64)

	for _, r := range rows {
		m := canonicalization.MonthKey(r.OrderDate)

		if orders[m] == nil {
			orders[m] = make(map[string]struct{})
		}

		orders[m][r.OrderID] = struct{}{}
		revenue[m] += r.TotalAmount
	}

	months := make([]string, 0, len(revenue))
	for m := range revenue {
		months = append(months, m)
	}

	sort.Strings(months)

	out := make([]MonthlyPoint, len(months))
	for i, m := range months {
		out[i] = MonthlyPoint{Month: m, Revenue: revenue[m], Orders: len(orders[m])}
	}

	return out
}

// CountryCategoryMonth aggregates revenue and quantity per country, category
// and month, in first-seen order.
func CountryCategoryMonth(rows []DenormalizedRow) []ScatterPoint {
	type cell struct{ country, category, month string }

	index := make(map[cell]int)
	points := make([]ScatterPoint, 0)

	for _, r := range rows {
		c := cell{r.Country, r.CategoryName, canonicalization.MonthKey(r.OrderDate)}

		i, ok := index[c]
		if !ok {
			i = len(points)
			index[c] = i
			points = append(points, ScatterPoint{Country: c.country, Category: c.category, Month: c.month})
		}

		points[i].Revenue += r.TotalAmount
		points[i].Quantity += r.Quantity
	}

	return points
}

// CountryCategoryMatrix crosses the top-10 countries by revenue with every
// distinct category of the rows, sorted. Empty cells are 0.
func CountryCategoryMatrix(rows []DenormalizedRow) Matrix {
	top := TopGroups(GroupSum(rows, ByCountry), TopN)

	cats := make(map[string]struct{})
	for _, r := range rows {
		cats[r.CategoryName] = struct{}{}
	}

	m := Matrix{
		Countries:  make([]string, len(top)),
		Categories: sortedKeys(cats),
		Values:     make([][]float64, len(top)),
	}

	rowIdx := make(map[string]int, len(top))
	for i, g := range top {
		m.Countries[i] = g.Key
		m.Values[i] = make([]float64, len(m.Categories))
		rowIdx[g.Key] = i
	}

	colIdx := make(map[string]int, len(m.Categories))
	for j, c := range m.Categories {
		colIdx[c] = j
	}

	for _, r := range rows {
		i, ok := rowIdx[r.Country]
		if !ok {
			continue
		}

		m.Values[i][colIdx[r.CategoryName]] += r.TotalAmount
	}

	return m
}

// TopProductMarkers ranks products by revenue and keeps the first n.
func TopProductMarkers(rows []DenormalizedRow, n int) []ProductMarker {
	index := make(map[string]int)
	markers := make([]ProductMarker, 0)
	orders := make([]map[string]struct{}, 0)

	for _, r := range rows {
		i, ok := index[r.ProductName]
		if !ok {
			i = len(markers)
			index[r.ProductName] = i
			markers = append(markers, ProductMarker{Product: r.ProductName})
			orders = append(orders, make(map[string]struct{}))
		}

		markers[i].Revenue += r.TotalAmount
		markers[i].Quantity += r.Quantity
		orders[i][r.OrderID] = struct{}{}
	}

	for i := range markers {
		markers[i].Orders = len(orders[i])
	}

	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Revenue > markers[j].Revenue })

	if n >= 0 && len(markers) > n {
		markers = markers[:n]
	}

	return markers
}

// SalesByCountry sums revenue and quantity and counts distinct orders per
// country, by revenue descending. Ties keep first-seen order.
func SalesByCountry(rows []DenormalizedRow) []CountrySales {
	index := make(map[string]int)
	sales := make([]CountrySales, 0)
	orders := make([]map[string]struct{}, 0)

	for _, r := range rows {
		i, ok := index[r.Country]
		if !ok {
			i = len(sales)
			index[r.Country] = i
			sales = append(sales, CountrySales{Country: r.Country, Region: r.Region})
			orders = append(orders, make(map[string]struct{}))
		}

		sales[i].Revenue += r.TotalAmount
		sales[i].Quantity += r.Quantity
		orders[i][r.OrderID] = struct{}{}
	}

	for i := range sales {
		sales[i].Orders = len(orders[i])
	}

	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Revenue > sales[j].Revenue })

	return sales
}

// RecentTransactions returns up to n rows ordered by order date, newest first.
// Rows with the same date keep their input order.
func RecentTransactions(rows []DenormalizedRow, n int) []DenormalizedRow {
	sorted := append([]DenormalizedRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderDate.After(sorted[j].OrderDate) })

	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted
}

// Summarize computes the summary statistics table. orderStdDev is the
// per-order dispersion from the KPIs.
func Summarize(rows []DenormalizedRow, orderStdDev float64) SummaryStats {
	s := SummaryStats{StdDev: orderStdDev}

	for i, r := range rows {
		s.Total += r.TotalAmount

		if i == 0 || r.TotalAmount < s.Min {
			s.Min = r.TotalAmount
		}

		if i == 0 || r.TotalAmount > s.Max {
			s.Max = r.TotalAmount
		}
	}

	s.Average = s.Total / math.Max(float64(len(rows)), 1)

	return s
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return num / den
}
