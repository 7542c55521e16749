package dispatch

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"stablepool/internal/model"
	"stablepool/internal/numeric"
	"stablepool/internal/pool"
)

// PoolsResponse is the GetPools query result: the externally-reported balance
// per token and the outstanding share supply.
type PoolsResponse struct {
	Assets      []model.TokenAmount
	TotalShares *uint256.Int
}

// ConfigResponse is the GetConfig query result.
type ConfigResponse struct {
	Admin          string `json:"admin"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	Halted         bool   `json:"halted"`
	RoundDown      bool   `json:"round_down"`
	ShareToken     string `json:"share_token"`
	State          string `json:"state"`
}

// GetPools reads the pool's balance in every registered token and the share
// token's total supply.
func (d *Dispatcher) GetPools(ctx context.Context) (PoolsResponse, error) {
	if d.cfg == nil {
		return PoolsResponse{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}

	assets, err := d.poolBalances(ctx)
	if err != nil {
		return PoolsResponse{}, err
	}
	totalShares, err := d.balances.TotalSupply(ctx, d.cfg.ShareToken())
	if err != nil {
		return PoolsResponse{}, err
	}
	return PoolsResponse{Assets: assets, TotalShares: totalShares}, nil
}

// GetConfig reports the fee schedule, admin, and lifecycle state.
func (d *Dispatcher) GetConfig() (ConfigResponse, error) {
	if d.cfg == nil {
		return ConfigResponse{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	return ConfigResponse{
		Admin:          d.cfg.Admin.Hex(),
		FeeNumerator:   d.cfg.FeeNumerator,
		FeeDenominator: d.cfg.FeeDenominator,
		Halted:         d.cfg.Halted,
		RoundDown:      d.cfg.RoundDown,
		ShareToken:     d.cfg.ShareToken().Address.Hex(),
		State:          d.cfg.State().String(),
	}, nil
}

// GetTokens reports the registered token set.
func (d *Dispatcher) GetTokens() ([]model.TokenInfo, error) {
	if d.reg == nil {
		return nil, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	return d.reg.Tokens(), nil
}

// GetMostNeededToken returns the registered token with the lowest
// canonical-scale balance: the asset a depositor would rebalance the pool
// with.
func (d *Dispatcher) GetMostNeededToken(ctx context.Context) (model.TokenInfo, error) {
	if d.cfg == nil {
		return model.TokenInfo{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	infos := d.reg.Tokens()
	if len(infos) == 0 {
		return model.TokenInfo{}, fmt.Errorf("no tokens registered")
	}

	var (
		neediest model.TokenInfo
		lowest   *uint256.Int
	)
	for _, info := range infos {
		balance, err := d.balances.Balance(ctx, info.Token, d.self)
		if err != nil {
			return model.TokenInfo{}, fmt.Errorf("balance of %s: %w", info.Address.Hex(), err)
		}
		canonical, err := numeric.ToCanonical(balance, info.Decimals)
		if err != nil {
			return model.TokenInfo{}, fmt.Errorf("normalize balance of %s: %w", info.Address.Hex(), err)
		}
		if lowest == nil || canonical.Lt(lowest) {
			neediest = info
			lowest = canonical
		}
	}
	return neediest, nil
}
