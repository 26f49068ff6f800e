package product

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrPricePrecision = errors.New("price has sub-minor-unit precision")

// ToMinorUnits converts a NUMERIC major-unit price ("1500.00") into an
// integer amount of minor units (150000).
func ToMinorUnits(price string) (int64, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price %q", price)
	}
	m := d.Shift(2)
	if !m.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrPricePrecision, price)
	}
	return m.IntPart(), nil
}

// FormatMinor renders minor units as a two-decimal major-unit string.
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
