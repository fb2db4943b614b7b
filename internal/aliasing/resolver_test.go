package aliasing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver(t *testing.T) {
	r := NewResolver(&Config{
		CountryAliases:  map[string]string{"United States": "USA", " ": "ignored", "Empty": ""},
		CategoryAliases: map[string]string{"drinks": "Beverages"},
	})

	tests := []struct {
		name    string
		resolve func(string) string
		input   string
		want    string
	}{
		{"country exact", r.Country, "United States", "USA"},
		{"country case-insensitive", r.Country, "  united STATES ", "USA"},
		{"country passthrough trimmed", r.Country, " Germany ", "Germany"},
		{"empty canonical skipped", r.Country, "Empty", "Empty"},
		{"category alias", r.Category, "Drinks", "Beverages"},
		{"category passthrough", r.Category, "Seafood", "Seafood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resolve(tt.input))
		})
	}

	assert.Equal(t, 2, r.Count())
}

func TestResolver_NilSafe(t *testing.T) {
	var r *Resolver

	assert.Equal(t, "France", r.Country(" France"))
	assert.Equal(t, "Seafood", r.Category("Seafood"))
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, NewResolver(nil).Count())
}

func TestResolver_Region(t *testing.T) {
	custom := NewResolver(&Config{Regions: map[string][]string{
		"DACH":    {"Germany", "Austria"},
		"Central": {"Austria", "Hungary"},
	}})
	defaults := NewResolver(&Config{})

	tests := []struct {
		name     string
		resolver *Resolver
		country  string
		want     string
	}{
		{"default europe", defaults, "France", "Europe"},
		{"default north america", defaults, "usa", "North America"},
		{"default south america", defaults, " Brazil ", "South America"},
		{"default other", defaults, "Japan", RegionOther},
		{"unknown country", defaults, "Unknown", RegionOther},
		{"custom region", custom, "Germany", "DACH"},
		{"listed twice keeps first region by name", custom, "Austria", "Central"},
		{"custom replaces defaults", custom, "France", RegionOther},
		{"nil config uses defaults", NewResolver(nil), "Canada", "North America"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resolver.Region(tt.country))
		})
	}

	var nilResolver *Resolver
	assert.Equal(t, RegionOther, nilResolver.Region("France"))
}
