package ingestion

import (
	"context"
	"errors"
)

// ErrSourceUnavailable indicates that a raw resource could not be fetched or
// parsed. Any occurrence aborts the whole load.
var ErrSourceUnavailable = errors.New("source unavailable")

// Resource names one of the nine tabular resources a load reads.
type Resource string

// Primary resources.
const (
	ResourceFactSales    Resource = "Fact_Sales"
	ResourceDimCustomers Resource = "Dim_Customers"
	ResourceDimProducts  Resource = "Dim_Products"
	ResourceDimEmployees Resource = "Dim_Employees"
)

// Secondary resources.
const (
	ResourceAccessOrders       Resource = "access_Orders"
	ResourceAccessCustomers    Resource = "access_Customers"
	ResourceAccessProducts     Resource = "access_Products"
	ResourceAccessEmployees    Resource = "access_Employees"
	ResourceAccessOrderDetails Resource = "access_Order_Details"
)

// Resources lists every resource in load order, primary first.
func Resources() []Resource {
	return []Resource{
		ResourceFactSales,
		ResourceDimCustomers,
		ResourceDimProducts,
		ResourceDimEmployees,
		ResourceAccessOrders,
		ResourceAccessCustomers,
		ResourceAccessProducts,
		ResourceAccessEmployees,
		ResourceAccessOrderDetails,
	}
}

// Tag returns the origin system of the resource.
func (r Resource) Tag() SourceTag {
	switch r {
	case ResourceAccessOrders, ResourceAccessCustomers, ResourceAccessProducts,
		ResourceAccessEmployees, ResourceAccessOrderDetails:
		return Secondary
	default:
		return Primary
	}
}

// String returns the resource name, which doubles as the default file stem.
func (r Resource) String() string {
	return string(r)
}

// Source fetches raw resources.
//
// The domain defines what it needs from a raw data source; concrete readers for
// CSV/XLSX files and SQL databases live in internal/storage. Implementations must
// be safe for concurrent Fetch calls because a load requests all resources at once.
type Source interface {
	// Fetch returns every row of the resource. Implementations wrap failures
	// with ErrSourceUnavailable.
	Fetch(ctx context.Context, resource Resource) ([]Record, error)
}

// RawDataset holds the fetched rows of all nine resources.
type RawDataset struct {
	rows map[Resource][]Record
}

// NewRawDataset builds a dataset from already fetched rows. Missing resources
// read as empty.
func NewRawDataset(rows map[Resource][]Record) *RawDataset {
	if rows == nil {
		rows = make(map[Resource][]Record)
	}

	return &RawDataset{rows: rows}
}

// Rows returns the rows of a resource.
func (d *RawDataset) Rows(resource Resource) []Record {
	return d.rows[resource]
}

// Counts returns the number of rows fetched per resource.
func (d *RawDataset) Counts() map[Resource]int {
	counts := make(map[Resource]int, len(d.rows))
	for _, r := range Resources() {
		counts[r] = len(d.rows[r])
	}

	return counts
}
