// Package numeric provides overflow-safe fixed-width arithmetic for pool
// amounts. Amounts are unsigned 128-bit values carried in uint256.Int so that
// every multiply-then-divide has a wide enough intermediate.
package numeric

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// AmountBits is the native width of a pool amount.
	AmountBits = 128

	// CanonicalDecimals is the common scale at which amounts from tokens of
	// different precision may be summed or compared.
	CanonicalDecimals = 18

	// MaxDecimals is the highest token precision the pool accepts.
	MaxDecimals = 18
)

var pow10 [MaxDecimals + 1]*uint256.Int

func init() {
	factor := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := range pow10 {
		pow10[i] = factor.Clone()
		factor.Mul(factor, ten)
	}
}

// Pow10 returns 10^n for n in [0, MaxDecimals]. The returned value is shared
// and must not be mutated.
func Pow10(n uint8) *uint256.Int {
	return pow10[n]
}

// FitsAmount reports whether v is representable as a native amount.
func FitsAmount(v *uint256.Int) bool {
	return v.BitLen() <= AmountBits
}

// ParseAmount parses a decimal string into a native amount.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !FitsAmount(v) {
		return nil, fmt.Errorf("parse amount %q: %w", s, ErrOverflow)
	}
	return v, nil
}
