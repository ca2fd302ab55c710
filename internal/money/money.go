// Package money implements checked arithmetic on monetary amounts.
// All amounts are integers in minor currency units (cents). Results must
// stay within MaxAmount; anything outside that range is rejected rather
// than silently wrapping.
package money

import (
	"errors"
	"math"
)

// MaxAmount is the largest representable monetary amount. It matches the
// largest integer exactly representable in a float64, so amounts survive
// the float math used for price-times-quantity without losing cents.
const MaxAmount int64 = 1<<53 - 1

// ErrOutOfRange is returned when an operation would leave the safe range.
var ErrOutOfRange = errors.New("money: amount out of safe integer range")

// Valid reports whether a is a representable non-negative amount.
func Valid(a int64) bool {
	return a >= 0 && a <= MaxAmount
}

// Add returns a+b, rejecting results outside [0, MaxAmount].
func Add(a, b int64) (int64, error) {
	if !Valid(a) || !Valid(b) {
		return 0, ErrOutOfRange
	}
	sum := a + b
	if !Valid(sum) {
		return 0, ErrOutOfRange
	}
	return sum, nil
}

// Sub returns a-b, rejecting negative results.
func Sub(a, b int64) (int64, error) {
	if !Valid(a) || !Valid(b) || b > a {
		return 0, ErrOutOfRange
	}
	return a - b, nil
}

// Mul returns a*b, rejecting results outside [0, MaxAmount].
func Mul(a, b int64) (int64, error) {
	if !Valid(a) || !Valid(b) {
		return 0, ErrOutOfRange
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > MaxAmount/b {
		return 0, ErrOutOfRange
	}
	return a * b, nil
}

// MulFloat returns floor(price*quantity) for a non-negative fractional
// quantity, used for trade costs where quantities may be fractional.
func MulFloat(price int64, quantity float64) (int64, error) {
	if !Valid(price) || quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0, ErrOutOfRange
	}
	product := math.Floor(float64(price) * quantity)
	if product > float64(MaxAmount) {
		return 0, ErrOutOfRange
	}
	return int64(product), nil
}

// Fraction returns floor(amount*rate) for a non-negative rate, used for
// interest accrual. A zero result is valid (tiny balances accrue nothing).
func Fraction(amount int64, rate float64) (int64, error) {
	if !Valid(amount) || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, ErrOutOfRange
	}
	product := math.Floor(float64(amount) * rate)
	if product > float64(MaxAmount) {
		return 0, ErrOutOfRange
	}
	return int64(product), nil
}
