// Package money provides a fixed-point monetary amount with two decimal
// places. All premium and payment arithmetic goes through this type so
// boundary comparisons (paying exactly the remaining balance) are exact and
// never subject to binary floating point drift.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a money value normalized to cents. The zero value is 0.00.
type Amount struct {
	dec decimal.Decimal
}

// Zero returns the 0.00 amount.
func Zero() Amount {
	return Amount{}
}

// FromDecimal normalizes d to two decimal places (bankers-free half-up
// rounding, matching how receipts are issued).
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{dec: d.Round(2)}
}

// Parse reads a decimal string such as "500.00" or "0.01".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{dec: a.dec.Add(b.dec)} }
func (a Amount) Sub(b Amount) Amount { return Amount{dec: a.dec.Sub(b.dec)} }

// Cmp returns -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.dec.Cmp(b.dec) }

func (a Amount) GreaterThan(b Amount) bool { return a.dec.GreaterThan(b.dec) }
func (a Amount) IsPositive() bool          { return a.dec.IsPositive() }
func (a Amount) IsNegative() bool          { return a.dec.IsNegative() }
func (a Amount) IsZero() bool              { return a.dec.IsZero() }

// ClampZero floors the amount at 0.00. Balances are reported clamped so a
// historically overpaid policy still reads as fully paid, never negative.
func (a Amount) ClampZero() Amount {
	if a.dec.IsNegative() {
		return Amount{}
	}
	return a
}

// String renders with exactly two decimal places.
func (a Amount) String() string { return a.dec.StringFixed(2) }

// Decimal exposes the underlying value for store drivers.
func (a Amount) Decimal() decimal.Decimal { return a.dec }

// MarshalJSON renders the amount as a JSON string ("500.00") so clients never
// round-trip it through a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "500.00" and 500.00 forms.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = FromDecimal(d)
	return nil
}

// Value implements driver.Valuer, storing the canonical 2dp string.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*a = FromDecimal(d)
	return nil
}
