// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals; float64 only appears at the display edge.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount in the user's currency.
type Money struct {
	Value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{Value: decimal.Zero}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Value: d}
}

// MustMoney parses s and panics on failure. Intended for tests and seed data.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{Value: d}
}

// ParseAmount converts a user-typed decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rejects
// signs, exponents, more than one separator and zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return Money{Value: d}, nil
}

func (m Money) Validate() error {
	if !m.Value.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value)} }

func (m Money) IsZero() bool     { return m.Value.IsZero() }
func (m Money) IsNegative() bool { return m.Value.IsNegative() }
func (m Money) Cmp(o Money) int  { return m.Value.Cmp(o.Value) }
func (m Money) Equal(o Money) bool {
	return m.Value.Equal(o.Value)
}

// Round rounds half away from zero to two decimal places.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(2)}
}

// Float returns the amount as a float64 for display purposes.
// Use Value for calculations.
func (m Money) Float() float64 {
	f, _ := m.Value.Float64()
	return f
}

// String formats the amount with two decimal places.
func (m Money) String() string {
	return m.Value.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return m.Value.MarshalJSON()
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Value.UnmarshalJSON(b)
}
