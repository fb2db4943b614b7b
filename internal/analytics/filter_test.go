package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterRows() []DenormalizedRow {
	return []DenormalizedRow{
		row("1", "Germany", "Beverages", "Chai", day(2024, time.January, 1), 1, 10),
		row("2", "USA", "Seafood", "Ikura", day(2024, time.January, 15), 1, 20),
		row("3", "Germany", "Seafood", "Ikura", day(2024, time.January, 31).Add(23*time.Hour), 1, 30),
		row("4", "France", "Beverages", "Chai", day(2024, time.February, 1), 1, 40),
	}
}

func TestApply_ConjunctivePredicates(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	f := NewFilter(day(2024, time.January, 1), day(2024, time.January, 31),
		[]string{"Germany", "USA"}, []string{"Seafood"})

	got := Apply(filterRows(), f)

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].OrderID)
	assert.Equal(t, "3", got[1].OrderID, "end day is inclusive regardless of time of day")
}

func TestApply_Idempotent(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	filters := []Filter{
		NewFilter(day(2024, time.January, 1), day(2024, time.December, 31), []string{"Germany"}, []string{"Beverages", "Seafood"}),
		NewFilter(day(2024, time.January, 15), day(2024, time.January, 15), []string{"USA"}, []string{"Seafood"}),
		NewFilter(day(2023, time.January, 1), day(2023, time.January, 2), []string{"USA"}, []string{"Seafood"}),
	}

	for _, f := range filters {
		once := Apply(filterRows(), f)
		twice := Apply(once, f)
		assert.Equal(t, once, twice)
	}
}

func TestApply_EmptySetMatchesNothing(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	f := NewFilter(day(2000, time.January, 1), day(2100, time.January, 1), nil, []string{"Beverages", "Seafood"})

	got := Apply(filterRows(), f)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rows := filterRows()
	f := NewFilter(day(2024, time.February, 1), day(2024, time.February, 1), []string{"France"}, []string{"Beverages"})

	_ = Apply(rows, f)

	assert.Equal(t, filterRows(), rows)
}

func TestSnapshotResolve(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	s := NewSnapshot(scenarioTables(), nil, time.Now())

	f := s.Resolve(AllSelection())

	assert.True(t, f.Start.Equal(day(2024, time.January, 5)))
	assert.True(t, f.End.Equal(day(2024, time.January, 6)))
	assert.Contains(t, f.Countries, "Germany")
	assert.Contains(t, f.Categories, "Unknown", "header-only orders stay reachable")

	explicit := s.Resolve(Selection{
		Start:         day(2024, time.January, 6),
		Countries:     []string{"USA"},
		AllCategories: true,
	})

	assert.True(t, explicit.Start.Equal(day(2024, time.January, 6)))
	assert.Len(t, explicit.Countries, 1)
}
