// Package analytics joins, filters and aggregates the reconciled sales tables.
//
// Everything here is a pure function of an immutable Snapshot and a Filter, so
// a view can be recomputed from scratch on every filter change and tested
// without any HTTP or UI harness.
package analytics

import (
	"github.com/salesdash-io/salesdash/internal/canonicalization"
	"github.com/salesdash-io/salesdash/internal/ingestion"
)

// DenormalizedRow is a fact row with its dimension references resolved to
// display values. Unresolved references read "Unknown".
type DenormalizedRow struct {
	ingestion.FactSale

	CompanyName  string `json:"companyName"`
	Country      string `json:"country"`
	Region       string `json:"region"`
	ProductName  string `json:"productName"`
	CategoryName string `json:"categoryName"`
	EmployeeName string `json:"employeeName"`
}

// Index resolves dimension identifiers in constant time. The first record
// carrying an identifier wins, matching a linear first-match scan.
type Index struct {
	customers map[string]*ingestion.Customer
	products  map[string]*ingestion.Product
	employees map[string]*ingestion.Employee
}

// NewIndex builds hash indexes over the dimension tables. The slices must not
// be mutated while the index is in use.
func NewIndex(customers []ingestion.Customer, products []ingestion.Product, employees []ingestion.Employee) *Index {
	ix := &Index{
		customers: make(map[string]*ingestion.Customer, len(customers)),
		products:  make(map[string]*ingestion.Product, len(products)),
		employees: make(map[string]*ingestion.Employee, len(employees)),
	}

	for i := range customers {
		if _, ok := ix.customers[customers[i].ID]; !ok {
			ix.customers[customers[i].ID] = &customers[i]
		}
	}

	for i := range products {
		if _, ok := ix.products[products[i].ID]; !ok {
			ix.products[products[i].ID] = &products[i]
		}
	}

	for i := range employees {
		if _, ok := ix.employees[employees[i].ID]; !ok {
			ix.employees[employees[i].ID] = &employees[i]
		}
	}

	return ix
}

// Customer returns the customer with id, if any.
func (ix *Index) Customer(id string) (*ingestion.Customer, bool) {
	c, ok := ix.customers[id]

	return c, ok
}

// Product returns the product with id, if any.
func (ix *Index) Product(id string) (*ingestion.Product, bool) {
	p, ok := ix.products[id]

	return p, ok
}

// Resolve denormalizes one fact row.
//
// The unit price shown is the product's list price when the product resolves
// with a non-zero price, else the fact's own price. TotalAmount is always the
// fact's own.
func (ix *Index) Resolve(f ingestion.FactSale) DenormalizedRow {
	row := DenormalizedRow{
		FactSale:     f,
		CompanyName:  canonicalization.Unknown,
		Country:      canonicalization.Unknown,
		Region:       canonicalization.Unknown,
		ProductName:  canonicalization.Unknown,
		CategoryName: canonicalization.Unknown,
		EmployeeName: canonicalization.Unknown,
	}

	if c, ok := ix.customers[f.CustomerID]; ok {
		row.CompanyName = orUnknown(c.CompanyName)
		row.Country = orUnknown(c.Country)
		row.Region = orUnknown(c.Region)
	}

	if p, ok := ix.products[f.ProductID]; ok {
		row.ProductName = orUnknown(p.Name)
		row.CategoryName = orUnknown(p.CategoryName)

		if p.UnitPrice > 0 {
			row.UnitPrice = p.UnitPrice
		}
	}

	if e, ok := ix.employees[f.EmployeeID]; ok {
		row.EmployeeName = orUnknown(e.FullName())
	}

	return row
}

// Denormalize resolves every fact against the dimension tables. Rows are never
// dropped and keep their input order.
func Denormalize(facts []ingestion.FactSale, customers []ingestion.Customer, products []ingestion.Product, employees []ingestion.Employee) []DenormalizedRow {
	return NewIndex(customers, products, employees).resolveAll(facts)
}

func (ix *Index) resolveAll(facts []ingestion.FactSale) []DenormalizedRow {
	rows := make([]DenormalizedRow, len(facts))
	for i, f := range facts {
		rows[i] = ix.Resolve(f)
	}

	return rows
}

func orUnknown(s string) string {
	if s == "" {
		return canonicalization.Unknown
	}

	return s
}
