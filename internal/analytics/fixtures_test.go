package analytics

import (
	"time"

	"github.com/salesdash-io/salesdash/internal/ingestion"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// scenarioTables mirrors the reconciliation scenario after a build: primary
// order P1 worth 100, secondary order ACC_S1 worth 50 and header-only order
// ACC_S2.
func scenarioTables() *ingestion.Tables {
	return &ingestion.Tables{
		Customers: []ingestion.Customer{
			{ID: "ALFKI", CompanyName: "Alfreds Futterkiste", Country: "Germany", Region: "Europe", Source: ingestion.Primary},
			{ID: "ACC_4", CompanyName: "Company D", Country: "USA", Region: "North America", Source: ingestion.Secondary},
		},
		Products: []ingestion.Product{
			{ID: "11", Name: "Queso Cabrales", CategoryName: "Dairy Products", UnitPrice: 21},
			{ID: "ACC_7", Name: "Chai", CategoryName: "Beverages", UnitPrice: 18},
		},
		Employees: []ingestion.Employee{
			{ID: "1", FirstName: "Nancy", LastName: "Davolio"},
			{ID: "ACC_2", FirstName: "Andrew"},
		},
		Facts: []ingestion.FactSale{
			{OrderID: "P1", OrderDate: day(2024, time.January, 5), CustomerID: "ALFKI", EmployeeID: "1",
				ProductID: "11", Quantity: 10, UnitPrice: 10, TotalAmount: 100, Source: ingestion.Primary},
			{OrderID: "ACC_S1", OrderDate: day(2024, time.January, 6), CustomerID: "ACC_4", EmployeeID: "ACC_2",
				ProductID: "ACC_7", Quantity: 5, UnitPrice: 10, TotalAmount: 50, Source: ingestion.Secondary},
			{OrderID: "ACC_S2", OrderDate: day(2024, time.January, 6), CustomerID: "ACC_4", EmployeeID: "ACC_2",
				ProductID: "UNKNOWN", Source: ingestion.Secondary},
		},
	}
}

func row(orderID, country, category, product string, date time.Time, qty, total float64) DenormalizedRow {
	return DenormalizedRow{
		FactSale: ingestion.FactSale{
			OrderID:     orderID,
			OrderDate:   date,
			CustomerID:  "C-" + country,
			Quantity:    qty,
			TotalAmount: total,
		},
		CompanyName:  country + " Co",
		Country:      country,
		ProductName:  product,
		CategoryName: category,
	}
}
