package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"stablepool/internal/numeric"
	"stablepool/internal/registry"
)

// QuoteSwap computes the destination-token amount for swapping amount of the
// source token. The amount is rescaled directly between the two native
// precisions, then the fee retention factor is applied. The result is in the
// destination token's native decimals.
//
// With RoundDown set the fee step floors, keeping the rounding unit in the
// pool. When unset it ceils, crediting the unit to the swapper; the refund
// path is unaffected either way.
func QuoteSwap(src, dst common.Address, amount *uint256.Int, reg *registry.Registry, cfg *Config) (*uint256.Int, error) {
	if src == dst {
		return nil, fmt.Errorf("source and destination are both %s: %w", src.Hex(), ErrUnsupportedToken)
	}

	srcInfo, ok := reg.Lookup(src)
	if !ok {
		return nil, fmt.Errorf("source %s: %w", src.Hex(), ErrUnsupportedToken)
	}
	dstInfo, ok := reg.Lookup(dst)
	if !ok {
		return nil, fmt.Errorf("destination %s: %w", dst.Hex(), ErrUnsupportedToken)
	}

	rescaled, err := numeric.Rescale(amount, srcInfo.Decimals, dstInfo.Decimals)
	if err != nil {
		return nil, fmt.Errorf("rescale %s from %d to %d decimals: %w", amount.Dec(), srcInfo.Decimals, dstInfo.Decimals, err)
	}

	muldiv := numeric.MulDiv
	if !cfg.RoundDown {
		muldiv = numeric.MulDivCeil
	}
	out, err := muldiv(rescaled, uint256.NewInt(cfg.FeeNumerator), uint256.NewInt(cfg.FeeDenominator))
	if err != nil {
		return nil, fmt.Errorf("apply fee %d/%d: %w", cfg.FeeNumerator, cfg.FeeDenominator, err)
	}
	return out, nil
}
