package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"stablepool/internal/model"
	"stablepool/internal/numeric"
	"stablepool/internal/registry"
)

// ShareForDeposits computes the share-token amount to mint for a set of
// deposits. Every deposit is normalized to the canonical 18-decimal scale and
// the share is their sum, independent of current pool composition.
//
// Pricing deposits against existing reserves instead is a known open design
// decision; see DESIGN.md.
func ShareForDeposits(deposits []model.TokenAmount, reg *registry.Registry) (*uint256.Int, error) {
	share := new(uint256.Int)
	for _, deposit := range deposits {
		info, ok := reg.Lookup(deposit.Token.Address)
		if !ok {
			return nil, fmt.Errorf("deposit of %s: %w", deposit.Token.Address.Hex(), ErrUnsupportedToken)
		}

		canonical, err := numeric.ToCanonical(deposit.Amount, info.Decimals)
		if err != nil {
			return nil, fmt.Errorf("normalize deposit of %s %s: %w", deposit.Amount.Dec(), deposit.Token.Address.Hex(), err)
		}

		if _, carry := share.AddOverflow(share, canonical); carry || !numeric.FitsAmount(share) {
			return nil, fmt.Errorf("sum deposits: %w", numeric.ErrOverflow)
		}
	}
	return share, nil
}

// WithdrawalRefunds computes the proportional refund per pool asset for
// burning shareAmount out of totalSupply shares. Each refund is
// floor(balance * shareAmount / totalSupply): rounding always favors the
// pool, leaving at most one unit of residue per asset.
func WithdrawalRefunds(shareAmount *uint256.Int, balances []model.TokenAmount, totalSupply *uint256.Int) ([]model.TokenAmount, error) {
	if totalSupply.IsZero() {
		return nil, fmt.Errorf("total share supply: %w", numeric.ErrDivideByZero)
	}

	refunds := make([]model.TokenAmount, 0, len(balances))
	for _, balance := range balances {
		refund, err := numeric.MulDiv(balance.Amount, shareAmount, totalSupply)
		if err != nil {
			return nil, fmt.Errorf("refund for %s (balance %s, share %s, supply %s): %w",
				balance.Token.Address.Hex(), balance.Amount.Dec(), shareAmount.Dec(), totalSupply.Dec(), err)
		}
		refunds = append(refunds, model.TokenAmount{Token: balance.Token, Amount: refund})
	}
	return refunds, nil
}
