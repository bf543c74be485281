// Package money holds the integer-cents amount type used by every monetary
// field in the POS. Amounts are decimal strings ("64.80") at the JSON boundary
// and BIGINT cents in the database; binary floats never appear.
package money

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount of currency in minor units.
type Cents int64

const Zero Cents = 0

// FromDecimal converts d to cents, rounding half away from zero at the cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

// Parse reads a decimal string such as "64.8" or "200.00". More than two
// fractional digits are rejected rather than silently rounded.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q", s)
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("money: amount %q has more than 2 decimal places", s)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for literals in tests and seed data.
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

func (c Cents) String() string { return c.Decimal().StringFixed(2) }

func (c Cents) Neg() Cents { return -c }

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

func (c Cents) IsPositive() bool { return c > 0 }

// MulQuantity multiplies a unit price by a (possibly fractional) quantity and
// rounds the product half-up to the cent.
func (c Cents) MulQuantity(qty decimal.Decimal) Cents {
	return FromDecimal(c.Decimal().Mul(qty))
}

// ApplyRate returns c × rate rounded half-up to the cent. Used for tax.
func (c Cents) ApplyRate(rate decimal.Decimal) Cents {
	return FromDecimal(c.Decimal().Mul(rate))
}

// Sum adds amounts in order.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

// ── JSON ─────────────────────────────────────────────────────────────────────

// MarshalJSON writes the amount as a quoted decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number. Numbers
// are read from their literal text, never through float64.
func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ── database/sql ─────────────────────────────────────────────────────────────

func (c Cents) Value() (driver.Value, error) { return int64(c), nil }

func (c *Cents) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
	case int64:
		*c = Cents(v)
	case int32:
		*c = Cents(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		*c = Cents(d.IntPart())
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		*c = Cents(d.IntPart())
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}
