package numeric

import "github.com/holiman/uint256"

// MulDiv computes floor(a * b / c) with a 512-bit intermediate product.
// It returns ErrDivideByZero when c is zero and ErrOverflow when the
// quotient does not fit the native amount width.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrDivideByZero
	}
	z := new(uint256.Int)
	if _, overflow := z.MulDivOverflow(a, b, c); overflow {
		return nil, ErrOverflow
	}
	if !FitsAmount(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivCeil computes ceil(a * b / c). Same failure modes as MulDiv.
func MulDivCeil(a, b, c *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, c)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, c)
	if rem.IsZero() {
		return z, nil
	}
	if _, carry := z.AddOverflow(z, uint256.NewInt(1)); carry || !FitsAmount(z) {
		return nil, ErrOverflow
	}
	return z, nil
}
