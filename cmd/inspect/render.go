package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/salesdash-io/salesdash/internal/analytics"
	"github.com/salesdash-io/salesdash/internal/ingestion"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)

	return t
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderReport(w io.Writer, report *ingestion.BuildReport) {
	t := newTable(w, "Load")
	t.AppendHeader(table.Row{"Resource", "Rows"})

	for _, r := range ingestion.Resources() {
		t.AppendRow(table.Row{string(r), report.ResourceRows[r]})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"customers", report.Customers})
	t.AppendRow(table.Row{"products", report.Products})
	t.AppendRow(table.Row{"employees", report.Employees})
	t.AppendRow(table.Row{"facts", report.Facts})
	t.AppendRow(table.Row{"unique orders", report.UniqueOrders})
	t.Render()

	m := report.Merge
	t = newTable(w, "Merge")
	t.AppendHeader(table.Row{"Primary rows", "Secondary lines", "Header-only orders", "Orphan lines", "Imputed dates"})
	t.AppendRow(table.Row{m.PrimaryRows, m.SecondaryLineRows, m.HeaderOnlyOrders, m.OrphanLineItems, m.ImputedDates})
	t.Render()

	if len(report.Drops) == 0 {
		_, _ = fmt.Fprintln(w, "(no dropped records)")

		return
	}

	drops := append([]ingestion.Drop(nil), report.Drops...)
	sort.Slice(drops, func(i, j int) bool {
		if drops[i].Kind != drops[j].Kind {
			return drops[i].Kind < drops[j].Kind
		}

		return drops[i].Reason < drops[j].Reason
	})

	t = newTable(w, "Dropped")
	t.AppendHeader(table.Row{"Kind", "Reason", "Count"})

	for _, d := range drops {
		t.AppendRow(table.Row{string(d.Kind), string(d.Reason), d.Count})
	}

	t.AppendFooter(table.Row{"", "total", report.Dropped()})
	t.Render()
}

func renderView(w io.Writer, view analytics.ViewModel) {
	k := view.KPIs

	t := newTable(w, fmt.Sprintf("KPIs %s .. %s", view.Filter.Start, view.Filter.End))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total revenue", money(k.TotalRevenue)},
		{"Orders", k.TotalOrders},
		{"Avg order value", money(k.AvgOrderValue)},
		{"Customers", k.TotalCustomers},
		{"Quantity", money(k.TotalQuantity)},
		{"Avg items per order", money(k.AvgItemsPerOrder)},
		{"Order std dev", money(k.OrderStdDev)},
		{"Revenue per customer", money(k.RevenuePerCustomer)},
		{"Records", k.FilteredRecords},
	})
	t.Render()

	s := view.Summary
	t = newTable(w, "Order totals")
	t.AppendHeader(table.Row{"Total", "Average", "Min", "Max", "Std dev"})
	t.AppendRow(table.Row{money(s.Total), money(s.Average), money(s.Min), money(s.Max), money(s.StdDev)})
	t.Render()

	renderGroups(w, "Top countries", view.TopCountries)
	renderGroups(w, "Top products", view.TopProducts)
	renderGroups(w, "Categories", view.CategoryShare)
	renderGroups(w, "Regions", view.RegionShare)
	renderGroups(w, "Top customers", view.TopCustomers)
	renderCountrySales(w, view.CountrySales)
}

func renderCountrySales(w io.Writer, sales []analytics.CountrySales) {
	if len(sales) == 0 {
		return
	}

	t := newTable(w, "Sales by country")
	t.AppendHeader(table.Row{"Country", "Region", "Revenue", "Orders", "Quantity"})

	for _, c := range sales {
		t.AppendRow(table.Row{c.Country, c.Region, money(c.Revenue), c.Orders, money(c.Quantity)})
	}

	t.Render()
}

func renderGroups(w io.Writer, title string, groups []analytics.Group) {
	if len(groups) == 0 {
		return
	}

	t := newTable(w, title)
	t.AppendHeader(table.Row{"Name", "Revenue"})

	for _, g := range groups {
		t.AppendRow(table.Row{g.Label, money(g.Value)})
	}

	t.Render()
}

func renderImport(w io.Writer, driver string, counts map[ingestion.Resource]int) {
	t := newTable(w, "Imported into "+driver)
	t.AppendHeader(table.Row{"Resource", "Rows"})

	for _, r := range ingestion.Resources() {
		if n, ok := counts[r]; ok {
			t.AppendRow(table.Row{string(r), n})
		}
	}

	t.Render()
}

func renderJSON(w io.Writer, report *ingestion.BuildReport, view analytics.ViewModel) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		Report *ingestion.BuildReport `json:"report"`
		View   analytics.ViewModel    `json:"view"`
	}{report, view})
}
