// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting minor units for display.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest single amount accepted, in major units.
var MaxAmount = decimal.New(1_000_000_000_000, 0)

var maxAmountCents = MaxAmount.Shift(2).IntPart()

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount; negative values, signs, exponents, malformed input and
// anything above MaxAmount are not.
//
// Examples:
//
//	ParseAmount("12.34")  -> Money{1234}, nil
//	ParseAmount("12,345") -> Money{1235}, nil (rounds up)
//	ParseAmount("0")      -> Money{0}, nil
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// decimal accepts signs and exponents; amounts entered by users never carry them
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// Format renders the amount with a currency prefix, e.g. "Rs.1234.50".
func (m Money) Format(symbol string) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + symbol + strconv.FormatInt(cents/100, 10) + "." + frac
}

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// CheckedAdd returns the sum of two amounts or ErrAmountOverflow when it
// does not fit in int64 cents.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}
