package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point monetary amount. Arithmetic is exact; callers
// round with Round2 at each persist/display boundary, never earlier.
type Money struct {
	dec decimal.Decimal
}

var ZeroMoney = Money{}

func MoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money value %q: %w", raw, err)
	}
	return Money{dec: d}, nil
}

// MustMoney parses a decimal string and panics on failure. Test and
// fixture helper.
func MustMoney(raw string) Money {
	m, err := MoneyFromString(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func MoneyFromInt(units int64) Money {
	return Money{dec: decimal.NewFromInt(units)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{dec: d}
}

func (m Money) Add(other Money) Money {
	return Money{dec: m.dec.Add(other.dec)}
}

func (m Money) Sub(other Money) Money {
	return Money{dec: m.dec.Sub(other.dec)}
}

func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{dec: m.dec.Mul(factor)}
}

// DivideByHundred is used for percentage application. The result is
// exact; rounding happens at the caller's Round2 boundary.
func (m Money) DivideByHundred() Money {
	return Money{dec: m.dec.Div(decimal.NewFromInt(100))}
}

// Round2 quantizes to 2 fraction digits, half away from zero. For the
// non-negative amounts this engine works with that is round-half-up.
func (m Money) Round2() Money {
	return Money{dec: m.dec.Round(2)}
}

func (m Money) IsNegative() bool {
	return m.dec.IsNegative()
}

func (m Money) IsZero() bool {
	return m.dec.IsZero()
}

// ClampToZero returns max(m, 0).
func (m Money) ClampToZero() Money {
	if m.dec.IsNegative() {
		return ZeroMoney
	}
	return m
}

func (m Money) Equal(other Money) bool {
	return m.dec.Equal(other.dec)
}

func (m Money) LessThan(other Money) bool {
	return m.dec.LessThan(other.dec)
}

func (m Money) GreaterThan(other Money) bool {
	return m.dec.GreaterThan(other.dec)
}

func (m Money) Decimal() decimal.Decimal {
	return m.dec
}

func (m Money) String() string {
	return m.dec.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.dec.StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.dec = d
	return nil
}

// Value / Scan let gorm store Money in NUMERIC columns.
func (m Money) Value() (driver.Value, error) {
	return m.dec.Value()
}

func (m *Money) Scan(value interface{}) error {
	return m.dec.Scan(value)
}
