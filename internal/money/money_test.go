package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"10", 1_000},
		{"10.5", 1_050},
		{"10.50", 1_050},
		{"1000.00", 100_000},
		{"0.01", 1},
		{"-3.25", -325},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("1.005"); !errors.Is(err, ErrPrecision) {
		t.Errorf("expected ErrPrecision, got %v", err)
	}
	if _, err := Parse("1e30"); !errors.Is(err, ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
	if _, err := Parse("ten"); err == nil {
		t.Error("expected parse error for non-numeric input")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(150_000); got != "1500.00" {
		t.Errorf("Format(150000)=%q", got)
	}
	if got := Format(5); got != "0.05" {
		t.Errorf("Format(5)=%q", got)
	}
	if got := ToDecimal(1_050); !got.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("ToDecimal(1050)=%s", got)
	}
}
