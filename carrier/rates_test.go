package carrier

import (
	"testing"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

func TestCheapestRate_SelectsLowestAmount(t *testing.T) {
	rates := []core.RateQuote{
		{ID: "r1", Amount: "12.50", Currency: "USD"},
		{ID: "r2", Amount: "9.99", Currency: "USD"},
	}
	best, err := CheapestRate(rates)
	if err != nil {
		t.Fatalf("cheapest rate: %v", err)
	}
	if best.ID != "r2" {
		t.Fatalf("expected r2 selected, got %q", best.ID)
	}
}

func TestCheapestRate_TieKeepsFirstQuote(t *testing.T) {
	rates := []core.RateQuote{
		{ID: "r1", Amount: "7.25"},
		{ID: "r2", Amount: "7.250"},
		{ID: "r3", Amount: "7.25"},
	}
	best, err := CheapestRate(rates)
	if err != nil {
		t.Fatalf("cheapest rate: %v", err)
	}
	if best.ID != "r1" {
		t.Fatalf("expected tie to keep the first quote, got %q", best.ID)
	}
}

func TestCheapestRate_SkipsUnparseableAmounts(t *testing.T) {
	rates := []core.RateQuote{
		{ID: "r1", Amount: "not-a-price"},
		{ID: "r2", Amount: "4.10"},
	}
	best, err := CheapestRate(rates)
	if err != nil {
		t.Fatalf("cheapest rate: %v", err)
	}
	if best.ID != "r2" {
		t.Fatalf("expected unparseable quote skipped, got %q", best.ID)
	}
}

func TestCheapestRate_FailsWithoutUsableRates(t *testing.T) {
	if _, err := CheapestRate(nil); err == nil {
		t.Fatalf("expected empty rate list to fail")
	}
	if _, err := CheapestRate([]core.RateQuote{{ID: "r1", Amount: "free"}}); err == nil {
		t.Fatalf("expected all-unparseable rate list to fail")
	}
}

func TestParseRateAmount(t *testing.T) {
	cases := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"9.99", 9_990_000, true},
		{"12.50", 12_500_000, true},
		{"12.5", 12_500_000, true},
		{"0", 0, true},
		{".75", 750_000, true},
		{"100", 100_000_000, true},
		{"", 0, false},
		{"-1.00", 0, false},
		{"1.0000001", 0, false},
		{"1,00", 0, false},
	}
	for _, tc := range cases {
		got, err := parseRateAmount(tc.value)
		if tc.ok && err != nil {
			t.Fatalf("parse %q: %v", tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("expected parse failure for %q", tc.value)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parse %q: expected %d, got %d", tc.value, tc.want, got)
		}
	}
}
