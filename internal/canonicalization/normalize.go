// Package canonicalization provides the value-level primitives used to bring
// records from the primary and secondary sales exports into one canonical shape.
package canonicalization

import (
	"math"
	"strconv"
	"strings"
)

const (
	// SecondaryIDPrefix namespaces secondary-source identifiers so they never
	// collide with primary-source identifiers once tables are concatenated.
	SecondaryIDPrefix = "ACC_"

	// UnknownProductID marks facts synthesized for orders without line items.
	UnknownProductID = "UNKNOWN"

	// Unknown is the display value used for any unresolved or missing text field.
	Unknown = "Unknown"
)

// CanonicalID returns the session-wide identifier for a raw source identifier.
// Secondary identifiers are prefixed with SecondaryIDPrefix; primary identifiers
// pass through trimmed. An empty raw identifier yields an empty result.
//
// Examples:
//   - CanonicalID("10248", false) → "10248"
//   - CanonicalID("30", true) → "ACC_30"
//   - CanonicalID(" ", true) → ""
func CanonicalID(raw string, secondary bool) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if secondary {
		return SecondaryIDPrefix + raw
	}

	return raw
}

// IsSecondaryID reports whether id carries the secondary-source prefix.
func IsSecondaryID(id string) bool {
	return strings.HasPrefix(id, SecondaryIDPrefix)
}

// RawID strips the secondary-source prefix, returning the identifier as the
// originating system knows it.
func RawID(id string) string {
	return strings.TrimPrefix(id, SecondaryIDPrefix)
}

// Text converts a cell value to trimmed text. Numbers are rendered without a
// trailing ".0" so numeric identifiers read the way the source wrote them.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}

		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return ""
	}
}

// TextOr returns Text(v), or fallback when the text is empty.
func TextOr(v any, fallback string) string {
	if s := Text(v); s != "" {
		return s
	}

	return fallback
}

// Number coerces a cell value to a finite float64. Anything that does not parse
// as a number becomes 0. Currency symbols and thousands separators are tolerated.
func Number(v any) float64 {
	var f float64

	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case []byte:
		return Number(string(t))
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")

		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}

		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	return f
}

// NonNegative coerces v to a number and clamps negatives to 0.
func NonNegative(v any) float64 {
	return math.Max(Number(v), 0)
}

// Fraction coerces v to a number clamped to [0, 1]. Values written as a
// percentage (for example 15 meaning 15%) are not rescaled.
func Fraction(v any) float64 {
	return math.Min(math.Max(Number(v), 0), 1)
}

// LineTotal computes quantity × unitPrice × (1 − discount).
func LineTotal(quantity, unitPrice, discount float64) float64 {
	return quantity * unitPrice * (1 - discount)
}
