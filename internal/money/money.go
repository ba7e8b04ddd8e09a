// Package money converts between decimal major-unit strings ("12.50") and the
// int64 minor units the ledger stores.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Exponent is the number of minor-unit digits per major unit.
const Exponent = 2

var (
	ErrPrecision = errors.New("amount has more than 2 decimal places")
	ErrRange     = errors.New("amount out of range")
)

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// Parse converts a major-unit string into minor units. "10", "10.5" and
// "10.50" all parse to 1050.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit decimal into minor units.
func FromDecimal(d decimal.Decimal) (int64, error) {
	minor := d.Shift(Exponent)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %s", ErrRange, d.String())
	}
	return minor.IntPart(), nil
}

// ToDecimal converts minor units into a major-unit decimal.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Exponent)
}

// Format renders minor units as a fixed two-place major-unit string.
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(Exponent)
}
