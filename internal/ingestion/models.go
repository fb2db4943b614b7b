// Package ingestion provides the sales domain entities and the load pipeline
// that turns raw primary and secondary exports into one fact/dimension model.
package ingestion

import (
	"strings"
	"time"
)

// SourceTag identifies which origin system a record came from.
type SourceTag string

const (
	// Primary is the structured warehouse export (Fact_Sales and Dim_* tables).
	Primary SourceTag = "primary"
	// Secondary is the looser order-entry export (access_* tables).
	Secondary SourceTag = "secondary"
)

// IsValid checks if the source tag is one of the known origins.
func (s SourceTag) IsValid() bool {
	return s == Primary || s == Secondary
}

// String returns the string representation of the source tag.
func (s SourceTag) String() string {
	return string(s)
}

// EntityKind names the entity a raw record is mapped to. Used in error messages
// and drop counters.
type EntityKind string

// Entity kinds produced by normalization.
const (
	KindCustomer EntityKind = "customer"
	KindProduct  EntityKind = "product"
	KindEmployee EntityKind = "employee"
	KindFact     EntityKind = "fact"
	KindOrder    EntityKind = "order"
	KindLineItem EntityKind = "line_item"
)

type (
	// Record is one pre-parsed tabular row keyed by column header. Numeric-looking
	// cells are float64, everything else is a string; empty cells are absent.
	Record map[string]any

	// Customer is a canonical customer dimension row.
	Customer struct {
		ID          string    `json:"customerId"`
		CompanyName string    `json:"companyName"`
		ContactName string    `json:"contactName"`
		Country     string    `json:"country"`
		Region      string    `json:"region"`
		City        string    `json:"city"`
		Address     string    `json:"address"`
		Phone       string    `json:"phone"`
		Source      SourceTag `json:"source"`
	}

	// Product is a canonical product dimension row. UnitPrice is the list price.
	Product struct {
		ID           string    `json:"productId"`
		Name         string    `json:"productName"`
		CategoryName string    `json:"categoryName"`
		UnitPrice    float64   `json:"unitPrice"`
		Source       SourceTag `json:"source"`
	}

	// Employee is a canonical employee dimension row.
	Employee struct {
		ID        string    `json:"employeeId"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		Source    SourceTag `json:"source"`
	}

	// FactSale is one transaction line.
	//
	// TotalAmount is trusted as given for primary rows and recomputed from
	// Quantity × UnitPrice × (1 − Discount) for secondary rows. DateImputed is set
	// when the source carried no order date and the load time was used instead.
	FactSale struct {
		OrderID     string    `json:"orderId"`
		OrderDate   time.Time `json:"orderDate"`
		CustomerID  string    `json:"customerId"`
		EmployeeID  string    `json:"employeeId"`
		ProductID   string    `json:"productId"`
		Quantity    float64   `json:"quantity"`
		UnitPrice   float64   `json:"unitPrice"`
		Discount    float64   `json:"discount"`
		TotalAmount float64   `json:"totalAmount"`
		Source      SourceTag `json:"source"`
		DateImputed bool      `json:"dateImputed,omitempty"`
	}

	// SecondaryOrder is an order header from the secondary export. RawID is the
	// identifier as written by the source, used to join line items.
	SecondaryOrder struct {
		RawID      string
		OrderDate  time.Time
		HasDate    bool
		CustomerID string
		EmployeeID string
	}

	// SecondaryLineItem is an order line from the secondary export.
	SecondaryLineItem struct {
		RawOrderID string
		ProductID  string
		Quantity   float64
		UnitPrice  float64
		Discount   float64
	}

	// Tables is the reconciled fact/dimension model produced by a load.
	Tables struct {
		Customers []Customer
		Products  []Product
		Employees []Employee
		Facts     []FactSale
	}
)

// FullName returns "First Last" when both names are present and "" otherwise.
func (e Employee) FullName() string {
	first := strings.TrimSpace(e.FirstName)
	last := strings.TrimSpace(e.LastName)

	if first == "" || last == "" {
		return ""
	}

	return first + " " + last
}

// UniqueOrders counts distinct order identifiers across the fact table.
func (t *Tables) UniqueOrders() int {
	seen := make(map[string]struct{}, len(t.Facts))
	for _, f := range t.Facts {
		seen[f.OrderID] = struct{}{}
	}

	return len(seen)
}
