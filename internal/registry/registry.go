// Package registry holds the ordered set of tokens a pool supports, with the
// decimal precision reported by each token contract at initialization.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"stablepool/internal/model"
	"stablepool/internal/numeric"
)

// ErrPrecisionExceeded reports a token whose native precision is beyond what
// pool arithmetic can normalize.
var ErrPrecisionExceeded = errors.New("token precision exceeds 18 decimals")

// DecimalsSource reports a token's decimal precision, typically by querying
// the token contract.
type DecimalsSource interface {
	Decimals(ctx context.Context, token model.Token) (uint8, error)
}

// DecimalsFunc adapts a function to the DecimalsSource interface.
type DecimalsFunc func(ctx context.Context, token model.Token) (uint8, error)

func (f DecimalsFunc) Decimals(ctx context.Context, token model.Token) (uint8, error) {
	return f(ctx, token)
}

// Registry is the immutable ordered token set fixed at pool initialization.
type Registry struct {
	infos []model.TokenInfo
}

// Register queries each token's precision through src and builds the registry.
// A token reporting more than 18 decimals fails the whole registration with
// ErrPrecisionExceeded and nothing is kept.
func Register(ctx context.Context, tokens []model.Token, src DecimalsSource, viewingKey string) (*Registry, error) {
	infos := make([]model.TokenInfo, 0, len(tokens))
	for _, token := range tokens {
		decimals, err := src.Decimals(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("query decimals for %s: %w", token.Address.Hex(), err)
		}
		if decimals > numeric.MaxDecimals {
			return nil, fmt.Errorf("token %s reports %d decimals: %w", token.Address.Hex(), decimals, ErrPrecisionExceeded)
		}
		infos = append(infos, model.TokenInfo{
			Token:      token,
			ViewingKey: viewingKey,
			Decimals:   decimals,
		})
	}
	return &Registry{infos: infos}, nil
}

// Lookup returns the registry entry for the given token address.
func (r *Registry) Lookup(addr common.Address) (model.TokenInfo, bool) {
	for _, info := range r.infos {
		if info.Address == addr {
			return info, true
		}
	}
	return model.TokenInfo{}, false
}

// Tokens returns the registry entries in registration order.
func (r *Registry) Tokens() []model.TokenInfo {
	out := make([]model.TokenInfo, len(r.infos))
	copy(out, r.infos)
	return out
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.infos)
}

// RotateViewingKeys replaces the viewing key on every entry. The token set
// itself stays fixed.
func (r *Registry) RotateViewingKeys(key string) {
	for i := range r.infos {
		r.infos[i].ViewingKey = key
	}
}
