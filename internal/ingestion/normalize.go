package ingestion

import (
	"errors"
	"fmt"

	"github.com/salesdash-io/salesdash/internal/aliasing"
	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

// ErrMissingIdentifier indicates a raw record lacks the key field of its entity.
// Such records are dropped, never fatal.
var ErrMissingIdentifier = errors.New("missing identifier")

// Primary export columns.
const (
	colCustomerID   = "CustomerID"
	colCompanyName  = "CompanyName"
	colContactName  = "ContactName"
	colCountry      = "Country"
	colCity         = "City"
	colAddress      = "Address"
	colPhone        = "Phone"
	colProductID    = "ProductID"
	colProductName  = "ProductName"
	colCategoryName = "CategoryName"
	colUnitPrice    = "UnitPrice"
	colEmployeeID   = "EmployeeID"
	colFirstName    = "FirstName"
	colLastName     = "LastName"
	colOrderID      = "OrderID"
	colOrderDate    = "OrderDate"
	colQuantity     = "Quantity"
	colDiscount     = "Discount"
	colTotalAmount  = "TotalAmount"
)

// Secondary export columns.
const (
	accID            = "ID"
	accCompany       = "Company"
	accFirstName     = "First Name"
	accLastName      = "Last Name"
	accCountryRegion = "Country/Region"
	accCity          = "City"
	accAddress       = "Address"
	accBusinessPhone = "Business Phone"
	accProductName   = "Product Name"
	accCategory      = "Category"
	accListPrice     = "List Price"
	accOrderID       = "Order ID"
	accOrderDate     = "Order Date"
	accCustomerID    = "Customer ID"
	accEmployeeID    = "Employee ID"
	accProductID     = "Product ID"
	accQuantity      = "Quantity"
	accUnitPrice     = "Unit Price"
	accDiscount      = "Discount"
)

const (
	defaultSecondaryCountry  = "USA"
	defaultSecondaryCategory = "General"
)

// Aliases maps free-text geography and category values onto canonical spellings
// so that both sources agree on filter values, and places a canonical country
// in its sales region. aliasing.Resolver implements it.
type Aliases interface {
	Country(value string) string
	Category(value string) string
	Region(country string) string
}

// Normalizer maps raw records from either source into canonical entities.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	aliases Aliases
}

// NewNormalizer creates a Normalizer. A nil aliases leaves values unchanged
// and uses the default regions.
func NewNormalizer(aliases Aliases) *Normalizer {
	if aliases == nil {
		aliases = aliasing.NewResolver(nil)
	}

	return &Normalizer{aliases: aliases}
}

func missing(kind EntityKind, tag SourceTag, column string) error {
	return fmt.Errorf("%w: %s record from %s source has no %q", ErrMissingIdentifier, kind, tag, column)
}

// Customer maps a customer record.
func (n *Normalizer) Customer(rec Record, tag SourceTag) (Customer, error) {
	if tag == Secondary {
		id := canonicalization.CanonicalID(canonicalization.Text(rec[accID]), true)
		if id == "" {
			return Customer{}, missing(KindCustomer, tag, accID)
		}

		contact := joinName(canonicalization.Text(rec[accFirstName]), canonicalization.Text(rec[accLastName]))

		country := n.aliases.Country(canonicalization.TextOr(rec[accCountryRegion], defaultSecondaryCountry))

		return Customer{
			ID:          id,
			CompanyName: canonicalization.TextOr(rec[accCompany], canonicalization.Unknown),
			ContactName: orDefault(contact, canonicalization.Unknown),
			Country:     country,
			Region:      n.aliases.Region(country),
			City:        canonicalization.TextOr(rec[accCity], canonicalization.Unknown),
			Address:     canonicalization.Text(rec[accAddress]),
			Phone:       canonicalization.Text(rec[accBusinessPhone]),
			Source:      Secondary,
		}, nil
	}

	id := canonicalization.CanonicalID(canonicalization.Text(rec[colCustomerID]), false)
	if id == "" {
		return Customer{}, missing(KindCustomer, tag, colCustomerID)
	}

	country := n.aliases.Country(canonicalization.TextOr(rec[colCountry], canonicalization.Unknown))

	return Customer{
		ID:          id,
		CompanyName: canonicalization.TextOr(rec[colCompanyName], canonicalization.Unknown),
		ContactName: canonicalization.Text(rec[colContactName]),
		Country:     country,
		Region:      n.aliases.Region(country),
		City:        canonicalization.TextOr(rec[colCity], canonicalization.Unknown),
		Address:     canonicalization.Text(rec[colAddress]),
		Phone:       canonicalization.Text(rec[colPhone]),
		Source:      Primary,
	}, nil
}

// Product maps a product record.
func (n *Normalizer) Product(rec Record, tag SourceTag) (Product, error) {
	if tag == Secondary {
		id := canonicalization.CanonicalID(canonicalization.Text(rec[accID]), true)
		if id == "" {
			return Product{}, missing(KindProduct, tag, accID)
		}

		return Product{
			ID:           id,
			Name:         canonicalization.TextOr(rec[accProductName], canonicalization.Unknown),
			CategoryName: n.aliases.Category(canonicalization.TextOr(rec[accCategory], defaultSecondaryCategory)),
			UnitPrice:    canonicalization.NonNegative(rec[accListPrice]),
			Source:       Secondary,
		}, nil
	}

	id := canonicalization.CanonicalID(canonicalization.Text(rec[colProductID]), false)
	if id == "" {
		return Product{}, missing(KindProduct, tag, colProductID)
	}

	return Product{
		ID:           id,
		Name:         canonicalization.TextOr(rec[colProductName], canonicalization.Unknown),
		CategoryName: n.aliases.Category(canonicalization.TextOr(rec[colCategoryName], canonicalization.Unknown)),
		UnitPrice:    canonicalization.NonNegative(rec[colUnitPrice]),
		Source:       Primary,
	}, nil
}

// Employee maps an employee record. Missing names stay empty.
func (n *Normalizer) Employee(rec Record, tag SourceTag) (Employee, error) {
	idCol, firstCol, lastCol := colEmployeeID, colFirstName, colLastName
	if tag == Secondary {
		idCol, firstCol, lastCol = accID, accFirstName, accLastName
	}

	id := canonicalization.CanonicalID(canonicalization.Text(rec[idCol]), tag == Secondary)
	if id == "" {
		return Employee{}, missing(KindEmployee, tag, idCol)
	}

	return Employee{
		ID:        id,
		FirstName: canonicalization.Text(rec[firstCol]),
		LastName:  canonicalization.Text(rec[lastCol]),
		Source:    tag,
	}, nil
}

// PrimaryFact maps a primary fact row. The given TotalAmount is trusted; it is
// only derived from the line formula when the column is absent. A zero
// OrderDate means the row carried no usable date.
func (n *Normalizer) PrimaryFact(rec Record) (FactSale, error) {
	orderID := canonicalization.CanonicalID(canonicalization.Text(rec[colOrderID]), false)
	if orderID == "" {
		return FactSale{}, missing(KindFact, Primary, colOrderID)
	}

	fact := FactSale{
		OrderID:    orderID,
		CustomerID: canonicalization.CanonicalID(canonicalization.Text(rec[colCustomerID]), false),
		EmployeeID: canonicalization.CanonicalID(canonicalization.Text(rec[colEmployeeID]), false),
		ProductID:  canonicalization.CanonicalID(canonicalization.Text(rec[colProductID]), false),
		Quantity:   canonicalization.NonNegative(rec[colQuantity]),
		UnitPrice:  canonicalization.NonNegative(rec[colUnitPrice]),
		Discount:   canonicalization.Fraction(rec[colDiscount]),
		Source:     Primary,
	}

	if date, ok := canonicalization.ParseDate(rec[colOrderDate]); ok {
		fact.OrderDate = date
	}

	if total, ok := rec[colTotalAmount]; ok {
		fact.TotalAmount = canonicalization.NonNegative(total)
	} else {
		fact.TotalAmount = canonicalization.LineTotal(fact.Quantity, fact.UnitPrice, fact.Discount)
	}

	return fact, nil
}

// SecondaryOrder maps an order header from the secondary export.
func (n *Normalizer) SecondaryOrder(rec Record) (SecondaryOrder, error) {
	rawID := canonicalization.Text(rec[accOrderID])
	if rawID == "" {
		return SecondaryOrder{}, missing(KindOrder, Secondary, accOrderID)
	}

	order := SecondaryOrder{
		RawID:      rawID,
		CustomerID: canonicalization.CanonicalID(canonicalization.Text(rec[accCustomerID]), true),
		EmployeeID: canonicalization.CanonicalID(canonicalization.Text(rec[accEmployeeID]), true),
	}

	order.OrderDate, order.HasDate = canonicalization.ParseDate(rec[accOrderDate])

	return order, nil
}

// SecondaryLineItem maps an order line from the secondary export.
func (n *Normalizer) SecondaryLineItem(rec Record) (SecondaryLineItem, error) {
	rawOrderID := canonicalization.Text(rec[accOrderID])
	if rawOrderID == "" {
		return SecondaryLineItem{}, missing(KindLineItem, Secondary, accOrderID)
	}

	return SecondaryLineItem{
		RawOrderID: rawOrderID,
		ProductID:  canonicalization.CanonicalID(canonicalization.Text(rec[accProductID]), true),
		Quantity:   canonicalization.NonNegative(rec[accQuantity]),
		UnitPrice:  canonicalization.NonNegative(rec[accUnitPrice]),
		Discount:   canonicalization.Fraction(rec[accDiscount]),
	}, nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
