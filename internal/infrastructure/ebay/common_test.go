package ebay

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"jo3qma.com/ebay_tracking/internal/timezone"
)

func TestParseDecimal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "19,99", want: "19.99", wantOK: true},
		{in: "1.234,56", want: "1234.56", wantOK: true},
		{in: "EUR 1.234.567,01", want: "1234567.01", wantOK: true},
		{in: "EUR 20", want: "20", wantOK: true},
		{in: "EUR 4,50 circa", want: "4.5", wantOK: true},
		{in: "Gratis", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tc := range cases {
		got, ok := parseDecimal(tc.in)
		if ok != tc.wantOK {
			t.Fatalf("parseDecimal(%q) ok got %v, want %v", tc.in, ok, tc.wantOK)
		}
		if !ok {
			continue
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("parseDecimal(%q) got %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseShippingCost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Gratis":                 "0",
		"Spedizione gratuita":    "0",
		"4,99":                   "4.99",
		"EUR 12,00":              "12",
		"EUR 1.005,10 (stimato)": "1005.1",
	}

	for in, want := range cases {
		got := parseShippingCost(in)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("parseShippingCost(%q) got %s, want %s", in, got, want)
		}
	}
}

func TestParseEndDate_italianMediumFormat(t *testing.T) {
	t.Parallel()

	got, err := parseEndDate("(15 ott, 2024", "18:30:00 CEST)", timezone.Location)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 10, 15, 18, 30, 0, 0, timezone.Location)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got.Location() != timezone.Location {
		t.Fatalf("location got %v, want %v", got.Location(), timezone.Location)
	}
}

func TestParseEndDate_rejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseEndDate("domani", "presto", timezone.Location); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := parseEndDate("15 ott 2024", "", timezone.Location); err == nil {
		t.Fatalf("expected error for missing time")
	}
}
