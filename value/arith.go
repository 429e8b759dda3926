package value

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when an operation is applied to
	// incompatible kinds.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero is returned when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

func mismatch(op string, a, b Value) error {
	return fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, a.Kind, op, b.Kind)
}

// Add returns a + b. Two strings concatenate.
func Add(a, b Value) (Value, error) {
	if a.Kind == String && b.Kind == String {
		return NewString(a.S + b.S), nil
	}

	return numeric("+", a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub returns a - b.
func Sub(a, b Value) (Value, error) {
	return numeric("-", a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul returns a * b.
func Mul(a, b Value) (Value, error) {
	return numeric("*", a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div returns a / b. When intDiv is set and both operands are ints the
// quotient is truncated, otherwise the division happens in float64.
func Div(a, b Value, intDiv bool) (Value, error) {
	if !a.Kind.IsNumeric() || !b.Kind.IsNumeric() {
		return Value{}, mismatch("/", a, b)
	}

	if b.IsZero() {
		return Value{}, ErrDivisionByZero
	}

	if intDiv && a.Kind == Int && b.Kind == Int {
		return NewInt(a.I / b.I), nil
	}

	return NewFloat(a.AsFloat() / b.AsFloat()), nil
}

func numeric(
	op string,
	a, b Value,
	intFn func(int64, int64) int64,
	floatFn func(float64, float64) float64,
) (Value, error) {
	if !a.Kind.IsNumeric() || !b.Kind.IsNumeric() {
		return Value{}, mismatch(op, a, b)
	}

	if a.Kind == Int && b.Kind == Int {
		return NewInt(intFn(a.I, b.I)), nil
	}

	return NewFloat(floatFn(a.AsFloat(), b.AsFloat())), nil
}
