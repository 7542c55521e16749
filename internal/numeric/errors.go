package numeric

import "errors"

var (
	// ErrOverflow reports a result that does not fit the native amount width.
	ErrOverflow = errors.New("amount overflow")

	// ErrDivideByZero reports a zero divisor.
	ErrDivideByZero = errors.New("divide by zero")
)
