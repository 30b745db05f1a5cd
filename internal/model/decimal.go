package model

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact decimal amount (prices, discounts). Arithmetic runs in
// a 34-digit context so batch sums never pick up binary float noise.
type Decimal struct {
	value apd.Decimal
}

func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{value: d}, nil
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func DecimalZero() Decimal {
	return NewDecimalFromInt64(0)
}

func (d Decimal) String() string {
	return d.value.String()
}

func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

func (d Decimal) Negative() bool {
	return d.value.Negative && !d.value.IsZero()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Add returns the sum of d and other.
func (d Decimal) Add(other Decimal) Decimal {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Add(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Div returns the quotient of d divided by other, with trailing zeros
// reduced so exact quotients print plainly (30/2 is "15", not a 34-digit
// expansion).
func (d Decimal) Div(other Decimal) Decimal {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Quo(&result, &d.value, &other.value)
	result.Reduce(&result)
	if result.Exponent > 0 {
		// Keep integral quotients in plain notation, not 3E+1.
		ctx.Quantize(&result, &result, 0)
	}
	return Decimal{value: result}
}

// Float64 is for rank ordering only; exact values stay in apd.
func (d Decimal) Float64() float64 {
	f, _ := d.value.Float64()
	return f
}

// MarshalJSON encodes the value as a string so the keyed store round-trips
// exact digits.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value.String())
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Accept bare JSON numbers as well.
		s = string(b)
	}
	v, err := NewDecimal(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
