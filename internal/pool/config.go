// Package pool implements the accounting core of the multi-asset pool: the
// fee and lifecycle configuration, the share accounting for deposits and
// withdrawals, and the swap quoting engine. All arithmetic is fixed-width and
// overflow-checked; the package never mutates external balances, it only
// computes amounts.
package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"stablepool/internal/model"
	"stablepool/internal/numeric"
)

// LifecycleState tracks the one-way initialization of a pool.
type LifecycleState uint8

const (
	// StateUninitialized is a pool before configuration validation.
	StateUninitialized LifecycleState = iota
	// StateAwaitingShareToken is a configured pool whose share token has not
	// called back yet.
	StateAwaitingShareToken
	// StateActive is the terminal lifecycle state with the share token bound.
	StateActive
)

func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingShareToken:
		return "awaiting_share_token"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Config is the pool's fee schedule, admin identity, and share-token binding.
// It is created once at initialization and mutated only by the one-time
// BindShareToken transition and the admin halt switch.
type Config struct {
	Admin          common.Address
	FeeNumerator   uint64
	FeeDenominator uint64
	Halted         bool
	RoundDown      bool

	shareToken model.Token
	state      LifecycleState
}

// NewConfig validates the fee schedule and returns a pool awaiting its share
// token. The fee is a multiplicative retention factor, so the numerator may
// not exceed the denominator: a factor above one would mint value on every
// swap.
func NewConfig(admin common.Address, feeNumerator, feeDenominator uint64, halted, roundDown bool, shareTokenCodeHash string) (*Config, error) {
	if feeDenominator == 0 {
		return nil, fmt.Errorf("fee denominator: %w", numeric.ErrDivideByZero)
	}
	if feeNumerator > feeDenominator {
		return nil, fmt.Errorf("fee %d/%d retains more than the swapped value", feeNumerator, feeDenominator)
	}
	return &Config{
		Admin:          admin,
		FeeNumerator:   feeNumerator,
		FeeDenominator: feeDenominator,
		Halted:         halted,
		RoundDown:      roundDown,
		shareToken:     model.Token{CodeHash: shareTokenCodeHash},
		state:          StateAwaitingShareToken,
	}, nil
}

// State returns the current lifecycle state.
func (c *Config) State() LifecycleState {
	return c.state
}

// ShareToken returns the bound share token. The address is zero until
// BindShareToken succeeds.
func (c *Config) ShareToken() model.Token {
	return c.shareToken
}

// BindShareToken records the share-token identity exactly once. Only the
// freshly instantiated share token is expected to call back at this lifecycle
// point, so any later call is rejected and the binding is left unchanged.
func (c *Config) BindShareToken(caller common.Address) error {
	if c.state != StateAwaitingShareToken {
		return fmt.Errorf("share token already bound to %s: %w", c.shareToken.Address.Hex(), ErrPermissionDenied)
	}
	c.shareToken.Address = caller
	c.state = StateActive
	return nil
}

// Guard rejects state-affecting operations while the pool is halted or not
// yet fully initialized.
func (c *Config) Guard() error {
	if c.state != StateActive {
		return fmt.Errorf("pool lifecycle is %s: %w", c.state, ErrPermissionDenied)
	}
	if c.Halted {
		return ErrPoolHalted
	}
	return nil
}

// SetHalted flips the halt switch. Admin only.
func (c *Config) SetHalted(caller common.Address, halted bool) error {
	if caller != c.Admin {
		return fmt.Errorf("halt switch requires admin: %w", ErrPermissionDenied)
	}
	c.Halted = halted
	return nil
}
