package aliasing

import (
	"log/slog"
	"sort"
	"strings"
)

// Resolver resolves country and category spellings to canonical values.
// Lookups are case-insensitive on trimmed input. Unknown values pass through
// trimmed but otherwise unchanged.
//
// Thread-safe for concurrent use (immutable after construction).
type Resolver struct {
	countries  map[string]string
	categories map[string]string
	regions    map[string]string
}

// NewResolver creates a resolver from config. Entries with an empty alias or
// canonical value are skipped with a warning. A nil config yields a
// passthrough resolver with DefaultRegions.
func NewResolver(cfg *Config) *Resolver {
	r := &Resolver{
		countries:  make(map[string]string),
		categories: make(map[string]string),
		regions:    make(map[string]string),
	}

	if cfg == nil {
		compileRegions(r.regions, DefaultRegions)

		return r
	}

	compile(r.countries, cfg.CountryAliases, "country")
	compile(r.categories, cfg.CategoryAliases, "category")

	if len(cfg.Regions) == 0 {
		compileRegions(r.regions, DefaultRegions)
	} else {
		compileRegions(r.regions, cfg.Regions)
	}

	return r
}

// compileRegions indexes country → region. Regions are visited in name order
// so a country listed twice always lands in the same region.
func compileRegions(dst map[string]string, src map[string][]string) {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		region := strings.TrimSpace(name)
		if region == "" {
			slog.Warn("Skipping region with empty name")

			continue
		}

		for _, country := range src[name] {
			key := foldKey(country)
			if key == "" {
				continue
			}

			if prev, ok := dst[key]; ok {
				slog.Warn("Country listed in more than one region",
					slog.String("country", country),
					slog.String("region", prev),
					slog.String("ignored", region))

				continue
			}

			dst[key] = region
		}
	}
}

func compile(dst, src map[string]string, kind string) {
	for alias, canonical := range src {
		key := foldKey(alias)
		canonical = strings.TrimSpace(canonical)

		if key == "" || canonical == "" {
			slog.Warn("Skipping alias with empty value",
				slog.String("kind", kind),
				slog.String("alias", alias),
				slog.String("canonical", canonical))

			continue
		}

		dst[key] = canonical

		slog.Debug("Registered alias",
			slog.String("kind", kind),
			slog.String("alias", alias),
			slog.String("canonical", canonical))
	}
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Country returns the canonical spelling of a country.
func (r *Resolver) Country(value string) string {
	if r == nil {
		return strings.TrimSpace(value)
	}

	return lookup(r.countries, value)
}

// Category returns the canonical spelling of a product category.
func (r *Resolver) Category(value string) string {
	if r == nil {
		return strings.TrimSpace(value)
	}

	return lookup(r.categories, value)
}

// Region returns the sales region of a canonical country, RegionOther when no
// region lists it.
func (r *Resolver) Region(country string) string {
	if r == nil {
		return RegionOther
	}

	if region, ok := r.regions[foldKey(country)]; ok {
		return region
	}

	return RegionOther
}

// Count returns the number of registered country and category aliases.
func (r *Resolver) Count() int {
	if r == nil {
		return 0
	}

	return len(r.countries) + len(r.categories)
}

func lookup(m map[string]string, value string) string {
	if canonical, ok := m[foldKey(value)]; ok {
		return canonical
	}

	return strings.TrimSpace(value)
}
