package numeric

import "github.com/holiman/uint256"

// ToCanonical converts an amount from a token's native precision to the
// 18-decimal canonical scale. decimals must already be validated to be at
// most MaxDecimals.
func ToCanonical(amount *uint256.Int, decimals uint8) (*uint256.Int, error) {
	z := new(uint256.Int)
	if _, overflow := z.MulOverflow(amount, Pow10(CanonicalDecimals-decimals)); overflow {
		return nil, ErrOverflow
	}
	if !FitsAmount(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// FromCanonical converts a canonical amount back to the token's native
// precision, truncating toward zero.
func FromCanonical(amount *uint256.Int, decimals uint8) *uint256.Int {
	return new(uint256.Int).Div(amount, Pow10(CanonicalDecimals-decimals))
}

// Rescale converts an amount directly between two native precisions:
// multiply when the destination is finer, floor-divide when it is coarser.
func Rescale(amount *uint256.Int, from, to uint8) (*uint256.Int, error) {
	switch {
	case to > from:
		z := new(uint256.Int)
		if _, overflow := z.MulOverflow(amount, Pow10(to-from)); overflow {
			return nil, ErrOverflow
		}
		if !FitsAmount(z) {
			return nil, ErrOverflow
		}
		return z, nil
	case from > to:
		return new(uint256.Int).Div(amount, Pow10(from-to)), nil
	default:
		return amount.Clone(), nil
	}
}
