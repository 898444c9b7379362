// Package money converts between user-facing price text and the integer minor
// units stored in the database.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of fractional digits kept in minor units.
const MinorDigits = 2

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrOverflow       = errors.New("amount out of range")
)

// maxAmount is the largest value whose minor units fit in an int64.
var maxAmount = decimal.New(math.MaxInt64, -MinorDigits)

// Parse reads "12500", "12500.5" or "12.500,50" style input and returns minor
// units. More than two fractional digits are rejected rather than rounded.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// "12.500,50" -> "12500.50"
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if d.Exponent() < -MinorDigits && !d.Equal(d.Truncate(MinorDigits)) {
		return 0, fmt.Errorf("%w: at most %d decimals", ErrInvalidAmount, MinorDigits)
	}
	if d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d, maxAmount)
	}
	return d.Shift(MinorDigits).IntPart(), nil
}

// Plain renders minor units as "12500.50", the form used in edit inputs.
func Plain(minor int64) string {
	return decimal.New(minor, -MinorDigits).StringFixed(MinorDigits)
}

// Format renders minor units as "Rp 12.500,50".
func Format(minor int64) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	fixed := decimal.New(minor, -MinorDigits).StringFixed(MinorDigits)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "Rp " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// Mul returns unit * qty, the extended price of a line. Results that do not
// fit in an int64 return ErrOverflow.
func Mul(unit int64, qty int) (int64, error) {
	if unit < 0 || qty < 0 {
		return 0, ErrNegativeAmount
	}
	if qty != 0 && unit > math.MaxInt64/int64(qty) {
		return 0, fmt.Errorf("%w: %d x %d", ErrOverflow, unit, qty)
	}
	return unit * int64(qty), nil
}

// Sum adds non-negative amounts, returning ErrOverflow past math.MaxInt64.
func Sum(amounts ...int64) (int64, error) {
	var total int64
	for _, a := range amounts {
		if a < 0 {
			return 0, ErrNegativeAmount
		}
		if a > math.MaxInt64-total {
			return 0, fmt.Errorf("%w: sum exceeds %d", ErrOverflow, int64(math.MaxInt64))
		}
		total += a
	}
	return total, nil
}
