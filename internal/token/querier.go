// Package token reads externally-reported token state: decimals, balances,
// and total supply. The pool treats every value returned here as an
// authoritative input to the current request, never as cached state.
package token

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"stablepool/internal/chain"
	"stablepool/internal/model"
	"stablepool/internal/numeric"
)

// Querier performs token contract reads through a chain client.
type Querier struct {
	chainClient *chain.Client
	logger      *zap.Logger
	maxRetries  int
	backoff     time.Duration
}

// NewQuerier builds a Querier. Transient RPC failures retry with exponential
// backoff.
func NewQuerier(chainClient *chain.Client, logger *zap.Logger, maxRetries int, backoff time.Duration) *Querier {
	return &Querier{
		chainClient: chainClient,
		logger:      logger,
		maxRetries:  maxRetries,
		backoff:     backoff,
	}
}

// Decimals reports the token's decimal precision.
func (q *Querier) Decimals(ctx context.Context, tok model.Token) (uint8, error) {
	values, err := q.call(ctx, tok.Address, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals of %s: unexpected type %T", tok.Address.Hex(), values[0])
	}
	return decimals, nil
}

// Balance reports the token balance held by account.
func (q *Querier) Balance(ctx context.Context, tok model.Token, account common.Address) (*uint256.Int, error) {
	values, err := q.call(ctx, tok.Address, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return q.asAmount(tok.Address, "balanceOf", values[0])
}

// TotalSupply reports the token's total supply. A token whose supply is not
// readable cannot back share accounting, so that is an error rather than a
// zero.
func (q *Querier) TotalSupply(ctx context.Context, tok model.Token) (*uint256.Int, error) {
	values, err := q.call(ctx, tok.Address, "totalSupply")
	if err != nil {
		return nil, fmt.Errorf("token %s has unavailable supply: %w", tok.Address.Hex(), err)
	}
	return q.asAmount(tok.Address, "totalSupply", values[0])
}

func (q *Querier) call(ctx context.Context, target common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var resp []byte
	msg := ethereum.CallMsg{To: &target, Data: data}
	err = chain.WithRetry(ctx, q.maxRetries, q.backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = q.chainClient.CallContract(ctx, msg, nil)
		if callErr != nil && q.logger != nil {
			q.logger.Debug("token call failed",
				zap.String("token", target.Hex()),
				zap.String("method", method),
				zap.Error(callErr),
			)
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, target.Hex(), err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}

func (q *Querier) asAmount(target common.Address, method string, value interface{}) (*uint256.Int, error) {
	raw, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s of %s: unexpected type %T", method, target.Hex(), value)
	}
	amount, overflow := uint256.FromBig(raw)
	if overflow || !numeric.FitsAmount(amount) {
		return nil, fmt.Errorf("%s of %s reports %s: %w", method, target.Hex(), raw.String(), numeric.ErrOverflow)
	}
	return amount, nil
}
