package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salesdash-io/salesdash/internal/ingestion"
)

// staticSource serves fixed records, used to seed warehouse tables.
type staticSource map[ingestion.Resource][]ingestion.Record

func (s staticSource) Fetch(_ context.Context, resource ingestion.Resource) ([]ingestion.Record, error) {
	return s[resource], nil
}

func primaryRecords() staticSource {
	return staticSource{
		ingestion.ResourceFactSales: {
			{"OrderID": 10248.0, "OrderDate": "2024-01-05", "CustomerID": "VINET", "EmployeeID": 5.0,
				"ProductID": 11.0, "Quantity": 12.0, "UnitPrice": 14.0, "Discount": 0.0, "TotalAmount": 168.0},
			{"OrderID": 10249.0, "OrderDate": "2024-01-06", "CustomerID": "TOMSP", "EmployeeID": 6.0,
				"ProductID": 14.0, "Quantity": 9.0, "UnitPrice": 18.6, "Discount": 0.05, "TotalAmount": 159.03},
		},
		ingestion.ResourceDimCustomers: {
			{"CustomerID": "VINET", "CompanyName": "Vins et alcools Chevalier", "Country": "France", "City": "Reims"},
			{"CustomerID": "TOMSP", "CompanyName": "Toms Spezialitäten", "Country": "Germany"},
		},
		ingestion.ResourceDimProducts: {
			{"ProductID": 11.0, "ProductName": "Queso Cabrales", "CategoryName": "Dairy Products", "UnitPrice": 21.0},
		},
		ingestion.ResourceDimEmployees: {
			{"EmployeeID": 5.0, "FirstName": "Steven", "LastName": "Buchanan"},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
