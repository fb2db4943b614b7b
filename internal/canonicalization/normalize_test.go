package canonicalization

import (
	"math"
	"testing"
)

func TestCanonicalID(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name      string
		raw       string
		secondary bool
		want      string
	}{
		{name: "primary passthrough", raw: "10248", want: "10248"},
		{name: "primary trimmed", raw: "  ALFKI ", want: "ALFKI"},
		{name: "secondary prefixed", raw: "30", secondary: true, want: "ACC_30"},
		{name: "empty primary", raw: "", want: ""},
		{name: "blank secondary stays empty", raw: "   ", secondary: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.raw, tt.secondary); got != tt.want {
				t.Errorf("CanonicalID(%q, %v) = %q, want %q", tt.raw, tt.secondary, got, tt.want)
			}
		})
	}
}

func TestRawIDRoundTrip(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	id := CanonicalID("42", true)
	if !IsSecondaryID(id) {
		t.Fatalf("IsSecondaryID(%q) = false, want true", id)
	}

	if got := RawID(id); got != "42" {
		t.Errorf("RawID(%q) = %q, want %q", id, got, "42")
	}

	if IsSecondaryID("10248") {
		t.Error("primary identifier reported as secondary")
	}
}

func TestText(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string trimmed", input: "  Berlin ", want: "Berlin"},
		{name: "whole float", input: float64(10248), want: "10248"},
		{name: "fractional float", input: 12.5, want: "12.5"},
		{name: "int", input: 7, want: "7"},
		{name: "bytes", input: []byte(" x "), want: "x"},
		{name: "unsupported", input: struct{}{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if got := TextOr("", Unknown); got != Unknown {
		t.Errorf("TextOr(\"\") = %q, want %q", got, Unknown)
	}
}

func TestNumber(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{name: "float", input: 14.0, want: 14},
		{name: "numeric string", input: "18.5", want: 18.5},
		{name: "currency string", input: "$1,234.50", want: 1234.5},
		{name: "garbage", input: "n/a", want: 0},
		{name: "nil", input: nil, want: 0},
		{name: "NaN", input: math.NaN(), want: 0},
		{name: "int64", input: int64(3), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Number(tt.input); got != tt.want {
				t.Errorf("Number(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFractionAndNonNegative(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	if got := Fraction("0.15"); got != 0.15 {
		t.Errorf("Fraction(0.15) = %v", got)
	}

	if got := Fraction(-0.2); got != 0 {
		t.Errorf("Fraction(-0.2) = %v, want 0", got)
	}

	if got := Fraction(15.0); got != 1 {
		t.Errorf("Fraction(15) = %v, want 1", got)
	}

	if got := NonNegative("-4"); got != 0 {
		t.Errorf("NonNegative(-4) = %v, want 0", got)
	}
}

func TestLineTotal(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	got := LineTotal(10, 14, 0.2)
	if math.Abs(got-112) > 1e-9 {
		t.Errorf("LineTotal(10, 14, 0.2) = %v, want 112", got)
	}
}
