package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
	"github.com/salesdash-io/salesdash/internal/ingestion"
)

// ErrUnsupportedResource is returned when a SQL source is asked for a
// resource it has no table for.
var ErrUnsupportedResource = errors.New("resource not served by this source")

//go:embed schema_sqlite.sql
var sqliteSchema string

type columnKind int

const (
	kindText columnKind = iota
	kindNumber
	kindDate
)

type (
	column struct {
		name   string
		header string
		kind   columnKind
	}

	table struct {
		name    string
		columns []column
	}
)

// warehouseTables maps each primary resource onto its warehouse table. Headers
// match the primary export files so both sources produce identical records.
var warehouseTables = map[ingestion.Resource]table{
	ingestion.ResourceDimCustomers: {name: "dim_customers", columns: []column{
		{"customer_id", "CustomerID", kindText},
		{"company_name", "CompanyName", kindText},
		{"contact_name", "ContactName", kindText},
		{"country", "Country", kindText},
		{"city", "City", kindText},
		{"address", "Address", kindText},
		{"phone", "Phone", kindText},
	}},
	ingestion.ResourceDimProducts: {name: "dim_products", columns: []column{
		{"product_id", "ProductID", kindText},
		{"product_name", "ProductName", kindText},
		{"category_name", "CategoryName", kindText},
		{"unit_price", "UnitPrice", kindNumber},
	}},
	ingestion.ResourceDimEmployees: {name: "dim_employees", columns: []column{
		{"employee_id", "EmployeeID", kindText},
		{"first_name", "FirstName", kindText},
		{"last_name", "LastName", kindText},
	}},
	ingestion.ResourceFactSales: {name: "fact_sales", columns: []column{
		{"order_id", "OrderID", kindText},
		{"order_date", "OrderDate", kindDate},
		{"customer_id", "CustomerID", kindText},
		{"employee_id", "EmployeeID", kindText},
		{"product_id", "ProductID", kindText},
		{"quantity", "Quantity", kindNumber},
		{"unit_price", "UnitPrice", kindNumber},
		{"discount", "Discount", kindNumber},
		{"total_amount", "TotalAmount", kindNumber},
	}},
}

// SQLSource serves the four primary resources from warehouse tables in
// PostgreSQL or SQLite. Rows come back in insertion order.
type SQLSource struct {
	conn *Connection
}

func NewSQLSource(conn *Connection) (*SQLSource, error) {
	if conn == nil || conn.DB == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &SQLSource{conn: conn}, nil
}

// Fetch implements ingestion.Source.
func (s *SQLSource) Fetch(ctx context.Context, resource ingestion.Resource) ([]ingestion.Record, error) {
	tbl, ok := warehouseTables[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResource, resource)
	}

	rows, err := s.conn.QueryContext(ctx, tbl.selectQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tbl.name, err)
	}

	defer func() { _ = rows.Close() }()

	records := make([]ingestion.Record, 0)
	values := make([]any, len(tbl.columns))
	ptrs := make([]any, len(tbl.columns))

	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", tbl.name, err)
		}

		rec := make(ingestion.Record, len(tbl.columns))

		for i, col := range tbl.columns {
			if v, ok := fromSQL(values[i]); ok {
				rec[col.header] = v
			}
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", tbl.name, err)
	}

	return records, nil
}

// Import replaces the warehouse tables with the primary resources of src, one
// transaction for all four tables. The SQLite schema is created on demand;
// PostgreSQL expects the migrations to have run.
func (s *SQLSource) Import(ctx context.Context, src ingestion.Source) (map[ingestion.Resource]int, error) {
	if s.conn.Driver == DriverSQLite {
		if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
			return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}

	data := make(map[ingestion.Resource][]ingestion.Record, len(warehouseTables))

	for resource := range warehouseTables {
		rows, err := src.Fetch(ctx, resource)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ingestion.ErrSourceUnavailable, resource, err)
		}

		data[resource] = rows
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	counts := make(map[ingestion.Resource]int, len(data))

	for resource, rows := range data {
		if err := s.replace(ctx, tx, warehouseTables[resource], rows); err != nil {
			return nil, err
		}

		counts[resource] = len(rows)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return counts, nil
}

func (s *SQLSource) replace(ctx context.Context, tx *sql.Tx, tbl table, rows []ingestion.Record) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl.name); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tbl.name, err)
	}

	stmt, err := tx.PrepareContext(ctx, tbl.insertQuery(s.conn.placeholder))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tbl.name, err)
	}

	defer func() { _ = stmt.Close() }()

	args := make([]any, len(tbl.columns))

	for _, rec := range rows {
		for i, col := range tbl.columns {
			args[i] = toSQL(col.kind, rec[col.header])
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", tbl.name, err)
		}
	}

	return nil
}

func (t table) selectQuery() string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = fmt.Sprintf("%s AS %q", c.name, c.header)
	}

	return "SELECT " + strings.Join(cols, ", ") + " FROM " + t.name + " ORDER BY id"
}

func (t table) insertQuery(placeholder func(int) string) string {
	cols := make([]string, len(t.columns))
	params := make([]string, len(t.columns))

	for i, c := range t.columns {
		cols[i] = c.name
		params[i] = placeholder(i + 1)
	}

	return "INSERT INTO " + t.name + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
}

// fromSQL converts a scanned driver value into the shapes the file sources
// produce: float64 for numbers, strings otherwise. NULL is absent.
func fromSQL(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return coerce(string(x))
	case string:
		return coerce(x)
	case int64:
		return float64(x), true
	case time.Time:
		return x.UTC().Format(time.RFC3339), true
	default:
		return x, true
	}
}

// toSQL converts a raw record value for a warehouse column. Missing values
// become NULL.
func toSQL(kind columnKind, v any) any {
	if v == nil {
		return nil
	}

	switch kind {
	case kindNumber:
		return canonicalization.Number(v)
	case kindDate:
		t, ok := canonicalization.ParseDate(v)
		if !ok {
			return nil
		}

		return canonicalization.DayKey(t)
	default:
		text := canonicalization.Text(v)
		if text == "" {
			return nil
		}

		return text
	}
}
