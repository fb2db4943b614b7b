package ingestion

import (
	"context"
	"fmt"
	"sync"
)

// scenarioRows is the reconciliation scenario used across tests: primary order
// P1 worth 100 on 2024-01-05, secondary order S1 with one line worth 50 on
// 2024-01-06 and secondary order S2 with no lines.
func scenarioRows() map[Resource][]Record {
	return map[Resource][]Record{
		ResourceFactSales: {
			{"OrderID": "P1", "OrderDate": "2024-01-05", "CustomerID": "ALFKI", "EmployeeID": 1.0,
				"ProductID": 11.0, "Quantity": 10.0, "UnitPrice": 10.0, "Discount": 0.0, "TotalAmount": 100.0},
		},
		ResourceDimCustomers: {
			{"CustomerID": "ALFKI", "CompanyName": "Alfreds Futterkiste", "Country": "Germany", "City": "Berlin"},
		},
		ResourceDimProducts: {
			{"ProductID": 11.0, "ProductName": "Queso Cabrales", "CategoryName": "Dairy Products", "UnitPrice": 21.0},
		},
		ResourceDimEmployees: {
			{"EmployeeID": 1.0, "FirstName": "Nancy", "LastName": "Davolio"},
		},
		ResourceAccessOrders: {
			{"Order ID": "S1", "Order Date": "1/6/2024", "Customer ID": 4.0, "Employee ID": 2.0},
			{"Order ID": "S2", "Order Date": "1/6/2024", "Customer ID": 4.0, "Employee ID": 2.0},
		},
		ResourceAccessCustomers: {
			{"ID": 4.0, "Company": "Company D", "First Name": "Christina", "Last Name": "Lee", "Country/Region": "USA"},
		},
		ResourceAccessProducts: {
			{"ID": 7.0, "Product Name": "Northwind Traders Chai", "Category": "Beverages", "List Price": 18.0},
		},
		ResourceAccessEmployees: {
			{"ID": 2.0, "First Name": "Andrew", "Last Name": "Cencini"},
		},
		ResourceAccessOrderDetails: {
			{"Order ID": "S1", "Product ID": 7.0, "Quantity": 5.0, "Unit Price": 10.0, "Discount": 0.0},
		},
	}
}

// memorySource serves fixed rows and can be told to fail one resource.
type memorySource struct {
	mu      sync.Mutex
	rows    map[Resource][]Record
	failOn  Resource
	fetched []Resource
}

func (m *memorySource) Fetch(ctx context.Context, resource Resource) ([]Record, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, resource)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if resource == m.failOn {
		return nil, fmt.Errorf("open %s.csv: no such file", resource)
	}

	return m.rows[resource], nil
}
