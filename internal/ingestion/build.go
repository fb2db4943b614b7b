package ingestion

import (
	"errors"
	"log/slog"
	"sort"
	"time"
)

// DropReason names why a raw record did not make it into the tables.
type DropReason string

// Drop reasons.
const (
	DropMissingIdentifier   DropReason = "missing_identifier"
	DropDuplicateIdentifier DropReason = "duplicate_identifier"
	DropOrphanLineItem      DropReason = "orphan_line_item"
)

type (
	// Drop counts discarded records of one kind for one reason.
	Drop struct {
		Kind   EntityKind `json:"kind"`
		Reason DropReason `json:"reason"`
		Count  int        `json:"count"`
	}

	// BuildReport summarizes a build: raw row counts per resource, the reconciled
	// table sizes, merge statistics and every discarded record class.
	BuildReport struct {
		ResourceRows map[Resource]int `json:"resourceRows"`
		Customers    int              `json:"customers"`
		Products     int              `json:"products"`
		Employees    int              `json:"employees"`
		Facts        int              `json:"facts"`
		UniqueOrders int              `json:"uniqueOrders"`
		Merge        MergeStats       `json:"merge"`
		Drops        []Drop           `json:"drops"`
	}

	dropKey struct {
		kind   EntityKind
		reason DropReason
	}

	// Builder turns a RawDataset into Tables.
	Builder struct {
		normalizer *Normalizer
		logger     *slog.Logger
		now        func() time.Time
	}
)

// NewBuilder creates a Builder. A nil logger discards debug output about
// dropped records.
func NewBuilder(normalizer *Normalizer, logger *slog.Logger) *Builder {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Builder{normalizer: normalizer, logger: logger, now: time.Now}
}

// WithClock overrides the clock used to impute missing order dates.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now

	return b
}

// Dropped returns the total number of discarded records in the report.
func (r *BuildReport) Dropped() int {
	total := 0
	for _, d := range r.Drops {
		total += d.Count
	}

	return total
}

// Build normalizes every resource, removes duplicate dimension identifiers
// (first occurrence wins) and merges the fact table. Records without an
// identifier are dropped; the build itself never fails on data.
func (b *Builder) Build(raw *RawDataset) (*Tables, *BuildReport) {
	drops := make(map[dropKey]int)
	validator := NewValidator()
	tables := &Tables{}

	record := func(kind EntityKind, resource Resource, err error) {
		reason := DropMissingIdentifier
		if errors.Is(err, ErrDuplicateIdentifier) {
			reason = DropDuplicateIdentifier
		}

		drops[dropKey{kind, reason}]++

		b.logger.Debug("Dropped source record",
			slog.String("resource", resource.String()),
			slog.String("kind", string(kind)),
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
	}

	for _, resource := range []Resource{ResourceDimCustomers, ResourceAccessCustomers} {
		for _, rec := range raw.Rows(resource) {
			c, err := b.normalizer.Customer(rec, resource.Tag())
			if err == nil {
				err = validator.Admit(KindCustomer, c.ID)
			}

			if err != nil {
				record(KindCustomer, resource, err)

				continue
			}

			tables.Customers = append(tables.Customers, c)
		}
	}

	for _, resource := range []Resource{ResourceDimProducts, ResourceAccessProducts} {
		for _, rec := range raw.Rows(resource) {
			p, err := b.normalizer.Product(rec, resource.Tag())
			if err == nil {
				err = validator.Admit(KindProduct, p.ID)
			}

			if err != nil {
				record(KindProduct, resource, err)

				continue
			}

			tables.Products = append(tables.Products, p)
		}
	}

	for _, resource := range []Resource{ResourceDimEmployees, ResourceAccessEmployees} {
		for _, rec := range raw.Rows(resource) {
			e, err := b.normalizer.Employee(rec, resource.Tag())
			if err == nil {
				err = validator.Admit(KindEmployee, e.ID)
			}

			if err != nil {
				record(KindEmployee, resource, err)

				continue
			}

			tables.Employees = append(tables.Employees, e)
		}
	}

	primary := make([]FactSale, 0, len(raw.Rows(ResourceFactSales)))

	for _, rec := range raw.Rows(ResourceFactSales) {
		f, err := b.normalizer.PrimaryFact(rec)
		if err != nil {
			record(KindFact, ResourceFactSales, err)

			continue
		}

		primary = append(primary, f)
	}

	orders := make([]SecondaryOrder, 0, len(raw.Rows(ResourceAccessOrders)))

	for _, rec := range raw.Rows(ResourceAccessOrders) {
		o, err := b.normalizer.SecondaryOrder(rec)
		if err != nil {
			record(KindOrder, ResourceAccessOrders, err)

			continue
		}

		orders = append(orders, o)
	}

	items := make([]SecondaryLineItem, 0, len(raw.Rows(ResourceAccessOrderDetails)))

	for _, rec := range raw.Rows(ResourceAccessOrderDetails) {
		item, err := b.normalizer.SecondaryLineItem(rec)
		if err != nil {
			record(KindLineItem, ResourceAccessOrderDetails, err)

			continue
		}

		items = append(items, item)
	}

	facts, stats := MergeFacts(primary, orders, items, b.now())
	tables.Facts = facts

	if stats.OrphanLineItems > 0 {
		drops[dropKey{KindLineItem, DropOrphanLineItem}] += stats.OrphanLineItems
	}

	report := &BuildReport{
		ResourceRows: raw.Counts(),
		Customers:    len(tables.Customers),
		Products:     len(tables.Products),
		Employees:    len(tables.Employees),
		Facts:        len(tables.Facts),
		UniqueOrders: tables.UniqueOrders(),
		Merge:        stats,
		Drops:        flattenDrops(drops),
	}

	return tables, report
}

func flattenDrops(drops map[dropKey]int) []Drop {
	out := make([]Drop, 0, len(drops))
	for k, n := range drops {
		out = append(out, Drop{Kind: k.kind, Reason: k.reason, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}

		return out[i].Reason < out[j].Reason
	})

	return out
}
