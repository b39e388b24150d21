package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

var decimalCtx = apd.BaseContext.WithPrecision(34)

// Decimal exact decimal value (meter reads, measurement values).
// The zero value is 0.
type Decimal struct {
	value *apd.Decimal
}

// ParseDecimal parses a decimal string such as "-12.5".
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{value: d}, nil
}

// MustDecimal is ParseDecimal for constants and tests.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDecimalFromInt64 creates a Decimal from an integer
func NewDecimalFromInt64(i int64) Decimal {
	return Decimal{value: apd.New(i, 0)}
}

func (d Decimal) apd() *apd.Decimal {
	if d.value == nil {
		return apd.New(0, 0)
	}
	return d.value
}

func (d Decimal) String() string {
	return d.apd().Text('f')
}

// IsZero reports whether d == 0
func (d Decimal) IsZero() bool {
	return d.apd().IsZero()
}

// Cmp compares d and other: -1, 0 or +1.
func (d Decimal) Cmp(other Decimal) int {
	return d.apd().Cmp(other.apd())
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	var result apd.Decimal
	decimalCtx.Add(&result, d.apd(), other.apd())
	return Decimal{value: &result}
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	var result apd.Decimal
	decimalCtx.Sub(&result, d.apd(), other.apd())
	return Decimal{value: &result}
}

// Float64 lossy conversion for sinks that only store floats.
func (d Decimal) Float64() float64 {
	f, err := d.apd().Float64()
	if err != nil {
		return 0
	}
	return f
}

// MarshalJSON encodes the value as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Decimal{}
		return nil
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
