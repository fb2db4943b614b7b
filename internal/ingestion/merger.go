package ingestion

import (
	"time"

	"github.com/salesdash-io/salesdash/internal/canonicalization"
)

// MergeStats counts what the fact merge produced and discarded.
type MergeStats struct {
	PrimaryRows       int `json:"primaryRows"`
	SecondaryLineRows int `json:"secondaryLineRows"`
	HeaderOnlyOrders  int `json:"headerOnlyOrders"`
	OrphanLineItems   int `json:"orphanLineItems"`
	ImputedDates      int `json:"imputedDates"`
}

// MergeFacts unions primary fact rows with facts derived from the secondary
// order headers and line items.
//
// Output order: primary rows as given, then one row per secondary line item
// whose order exists (first matching header wins), then one zero-amount row
// with product UNKNOWN for every secondary order that has no line items. Line
// items referencing an unknown order are dropped and counted. Rows without an
// order date receive now and are flagged DateImputed.
func MergeFacts(primary []FactSale, orders []SecondaryOrder, items []SecondaryLineItem, now time.Time) ([]FactSale, MergeStats) {
	now = now.UTC()
	stats := MergeStats{PrimaryRows: len(primary)}
	facts := make([]FactSale, 0, len(primary)+len(items)+len(orders))

	for _, f := range primary {
		if f.OrderDate.IsZero() {
			f.OrderDate = now
			f.DateImputed = true
			stats.ImputedDates++
		}

		f.Source = Primary
		facts = append(facts, f)
	}

	byRawID := make(map[string]int, len(orders))
	for i, o := range orders {
		if _, ok := byRawID[o.RawID]; !ok {
			byRawID[o.RawID] = i
		}
	}

	withItems := make(map[string]struct{}, len(orders))

	for _, item := range items {
		idx, ok := byRawID[item.RawOrderID]
		if !ok {
			stats.OrphanLineItems++

			continue
		}

		withItems[item.RawOrderID] = struct{}{}

		fact := secondaryFact(orders[idx], now, &stats)
		fact.ProductID = item.ProductID
		fact.Quantity = item.Quantity
		fact.UnitPrice = item.UnitPrice
		fact.Discount = item.Discount
		fact.TotalAmount = canonicalization.LineTotal(item.Quantity, item.UnitPrice, item.Discount)

		facts = append(facts, fact)
		stats.SecondaryLineRows++
	}

	for _, o := range orders {
		if _, ok := withItems[o.RawID]; ok {
			continue
		}

		fact := secondaryFact(o, now, &stats)
		fact.ProductID = canonicalization.UnknownProductID

		// Mark as handled so a repeated header yields a single row.
		withItems[o.RawID] = struct{}{}

		facts = append(facts, fact)
		stats.HeaderOnlyOrders++
	}

	return facts, stats
}

func secondaryFact(o SecondaryOrder, now time.Time, stats *MergeStats) FactSale {
	fact := FactSale{
		OrderID:    canonicalization.CanonicalID(o.RawID, true),
		OrderDate:  o.OrderDate,
		CustomerID: o.CustomerID,
		EmployeeID: o.EmployeeID,
		Source:     Secondary,
	}

	if !o.HasDate || fact.OrderDate.IsZero() {
		fact.OrderDate = now
		fact.DateImputed = true
		stats.ImputedDates++
	}

	return fact
}
