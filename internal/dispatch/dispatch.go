// Package dispatch routes pool requests to the accounting core and turns the
// numeric results into outbound effect instructions and event attributes.
// Effects are only constructed after every validation and computation has
// succeeded, so a failing request never emits a partial instruction set.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"stablepool/internal/model"
	"stablepool/internal/pool"
	"stablepool/internal/registry"
)

// BalanceSource reads externally-reported balances and supplies. The pool
// never persists these: every operation reads them fresh and treats them as
// authoritative inputs.
type BalanceSource interface {
	Balance(ctx context.Context, tok model.Token, account common.Address) (*uint256.Int, error)
	TotalSupply(ctx context.Context, tok model.Token) (*uint256.Int, error)
}

// Response carries the outbound instructions and the event record of one
// successfully processed request.
type Response struct {
	Effects []model.Effect    `json:"effects"`
	Event   model.EventRecord `json:"event"`
}

// InitMsg is the pool initialization request.
type InitMsg struct {
	Tokens             []model.Token
	InitialViewingKey  string
	ShareTokenCodeHash string
	ShareTokenLabel    string
	Admin              common.Address
	FeeNumerator       uint64
	FeeDenominator     uint64
	Halted             bool
	RoundDown          bool
}

// ReceivePayload is the instruction carried inside a token-receive
// notification.
type ReceivePayload interface {
	isReceivePayload()
}

// SwapPayload asks the pool to swap the received amount into ToToken. A zero
// Recipient defaults to the notification's sender.
type SwapPayload struct {
	ToToken   common.Address
	Recipient common.Address
}

// WithdrawPayload asks the pool to redeem the received share tokens.
type WithdrawPayload struct{}

func (SwapPayload) isReceivePayload()     {}
func (WithdrawPayload) isReceivePayload() {}

// Dispatcher holds the pool's configuration and registry and serves requests
// one at a time.
type Dispatcher struct {
	self     common.Address
	cfg      *pool.Config
	reg      *registry.Registry
	balances BalanceSource
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a dispatcher for the pool contract living at self. The pool is
// unusable until Initialize succeeds.
func New(self common.Address, balances BalanceSource, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		self:     self,
		balances: balances,
		logger:   logger,
		now:      time.Now,
	}
}

// Config returns the pool configuration, nil before initialization.
func (d *Dispatcher) Config() *pool.Config {
	return d.cfg
}

// Registry returns the token registry, nil before initialization.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

// Initialize validates the fee schedule, registers the token set (querying
// each token's precision), and emits the viewing-key, receive-registration,
// and share-token instantiation effects. The share token is left unbound
// until PostInitialize.
func (d *Dispatcher) Initialize(ctx context.Context, msg InitMsg, decimals registry.DecimalsSource) (Response, error) {
	if d.cfg != nil {
		return Response{}, fmt.Errorf("pool already initialized: %w", pool.ErrPermissionDenied)
	}

	cfg, err := pool.NewConfig(msg.Admin, msg.FeeNumerator, msg.FeeDenominator, msg.Halted, msg.RoundDown, msg.ShareTokenCodeHash)
	if err != nil {
		return Response{}, err
	}

	reg, err := registry.Register(ctx, msg.Tokens, decimals, msg.InitialViewingKey)
	if err != nil {
		return Response{}, err
	}

	effects := make([]model.Effect, 0, 2*len(msg.Tokens)+1)
	for _, tok := range msg.Tokens {
		effects = append(effects,
			model.Effect{Kind: model.EffectSetViewingKey, Token: tok, ViewingKey: msg.InitialViewingKey},
			model.Effect{Kind: model.EffectRegisterReceive, Token: tok, Recipient: d.self},
		)
	}
	effects = append(effects, model.Effect{
		Kind:  model.EffectInstantiateShareToken,
		Token: model.Token{CodeHash: msg.ShareTokenCodeHash},
		Owner: d.self,
		Label: msg.ShareTokenLabel,
	})

	d.cfg = cfg
	d.reg = reg
	d.logger.Info("pool initialized",
		zap.Int("tokens", reg.Len()),
		zap.Uint64("fee_numerator", msg.FeeNumerator),
		zap.Uint64("fee_denominator", msg.FeeDenominator),
	)

	return Response{
		Effects: effects,
		Event:   d.event("initialize", model.Attr{Key: "status", Value: "success"}),
	}, nil
}

// PostInitialize binds the caller as the pool's share token, exactly once,
// and registers for its receive notifications.
func (d *Dispatcher) PostInitialize(caller common.Address) (Response, error) {
	if d.cfg == nil {
		return Response{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	if err := d.cfg.BindShareToken(caller); err != nil {
		return Response{}, err
	}

	share := d.cfg.ShareToken()
	return Response{
		Effects: []model.Effect{
			{Kind: model.EffectRegisterReceive, Token: share, Recipient: d.self},
		},
		Event: d.event("post_initialize",
			model.Attr{Key: "liquidity_token_address", Value: share.Address.Hex()},
		),
	}, nil
}

// ProvideLiquidity computes the share amount for the deposits and emits one
// transfer-from effect per deposit plus the share mint.
func (d *Dispatcher) ProvideLiquidity(ctx context.Context, sender common.Address, deposits []model.TokenAmount) (Response, error) {
	if err := d.guard(); err != nil {
		return Response{}, err
	}

	share, err := pool.ShareForDeposits(deposits, d.reg)
	if err != nil {
		return Response{}, err
	}

	attrs := []model.Attr{{Key: "action", Value: "provide_liquidity"}}
	effects := make([]model.Effect, 0, len(deposits)+1)
	for _, deposit := range deposits {
		effects = append(effects, model.Effect{
			Kind:      model.EffectTransferFrom,
			Token:     deposit.Token,
			Owner:     sender,
			Recipient: d.self,
			Amount:    deposit.Amount.Dec(),
		})
		attrs = append(attrs, model.Attr{Key: "token", Value: deposit.Token.Address.Hex()})
	}
	effects = append(effects, model.Effect{
		Kind:      model.EffectMint,
		Token:     d.cfg.ShareToken(),
		Recipient: sender,
		Amount:    share.Dec(),
	})
	attrs = append(attrs, model.Attr{Key: "share", Value: share.Dec()})

	d.logger.Info("liquidity provided",
		zap.String("sender", sender.Hex()),
		zap.Int("deposits", len(deposits)),
		zap.String("share", share.Dec()),
	)

	return Response{Effects: effects, Event: d.event("provide_liquidity", attrs...)}, nil
}

// Receive handles a token-receive notification: the notifying contract has
// already credited amount to the pool, and the payload says what to do with
// it.
func (d *Dispatcher) Receive(ctx context.Context, notifier, from common.Address, amount *uint256.Int, payload ReceivePayload) (Response, error) {
	switch p := payload.(type) {
	case SwapPayload:
		return d.swap(ctx, notifier, from, amount, p)
	case WithdrawPayload:
		return d.withdraw(ctx, notifier, from, amount)
	default:
		return Response{}, fmt.Errorf("unknown receive payload %T", payload)
	}
}

func (d *Dispatcher) swap(ctx context.Context, srcToken, from common.Address, amount *uint256.Int, p SwapPayload) (Response, error) {
	if err := d.guard(); err != nil {
		return Response{}, err
	}

	out, err := pool.QuoteSwap(srcToken, p.ToToken, amount, d.reg, d.cfg)
	if err != nil {
		return Response{}, err
	}

	dstInfo, ok := d.reg.Lookup(p.ToToken)
	if !ok {
		return Response{}, fmt.Errorf("destination %s: %w", p.ToToken.Hex(), pool.ErrUnsupportedToken)
	}

	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = from
	}

	d.logger.Info("swap",
		zap.String("src", srcToken.Hex()),
		zap.String("dst", p.ToToken.Hex()),
		zap.String("offer_amount", amount.Dec()),
		zap.String("return_amount", out.Dec()),
	)

	return Response{
		Effects: []model.Effect{
			{
				Kind:      model.EffectTransfer,
				Token:     dstInfo.Token,
				Owner:     d.self,
				Recipient: recipient,
				Amount:    out.Dec(),
			},
		},
		Event: d.event("swap",
			model.Attr{Key: "action", Value: "swap"},
			model.Attr{Key: "offer_asset", Value: srcToken.Hex()},
			model.Attr{Key: "ask_asset", Value: p.ToToken.Hex()},
			model.Attr{Key: "offer_amount", Value: amount.Dec()},
			model.Attr{Key: "return_amount", Value: out.Dec()},
		),
	}, nil
}

func (d *Dispatcher) withdraw(ctx context.Context, notifier, from common.Address, amount *uint256.Int) (Response, error) {
	if err := d.guard(); err != nil {
		return Response{}, err
	}

	share := d.cfg.ShareToken()
	if notifier != share.Address {
		return Response{}, fmt.Errorf("withdraw notification from %s, not the share token: %w", notifier.Hex(), pool.ErrUnsupportedToken)
	}

	balances, err := d.poolBalances(ctx)
	if err != nil {
		return Response{}, err
	}
	totalSupply, err := d.balances.TotalSupply(ctx, share)
	if err != nil {
		return Response{}, err
	}

	refunds, err := pool.WithdrawalRefunds(amount, balances, totalSupply)
	if err != nil {
		return Response{}, err
	}

	attrs := []model.Attr{
		{Key: "action", Value: "withdraw_liquidity"},
		{Key: "withdrawn_share", Value: amount.Dec()},
	}
	effects := make([]model.Effect, 0, len(refunds)+1)
	for _, refund := range refunds {
		effects = append(effects, model.Effect{
			Kind:      model.EffectTransfer,
			Token:     refund.Token,
			Owner:     d.self,
			Recipient: from,
			Amount:    refund.Amount.Dec(),
		})
		attrs = append(attrs, model.Attr{
			Key:   "refund_" + refund.Token.Address.Hex(),
			Value: refund.Amount.Dec(),
		})
	}
	effects = append(effects, model.Effect{
		Kind:   model.EffectBurn,
		Token:  share,
		Amount: amount.Dec(),
	})

	d.logger.Info("liquidity withdrawn",
		zap.String("sender", from.Hex()),
		zap.String("share", amount.Dec()),
		zap.Int("refunds", len(refunds)),
	)

	return Response{Effects: effects, Event: d.event("withdraw_liquidity", attrs...)}, nil
}

// UpdateViewingKeys rotates the viewing key on every registered token.
// Admin only.
func (d *Dispatcher) UpdateViewingKeys(caller common.Address, newKey string) (Response, error) {
	if d.cfg == nil {
		return Response{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	if caller != d.cfg.Admin {
		return Response{}, fmt.Errorf("viewing key rotation requires admin: %w", pool.ErrPermissionDenied)
	}

	d.reg.RotateViewingKeys(newKey)

	infos := d.reg.Tokens()
	effects := make([]model.Effect, 0, len(infos))
	for _, info := range infos {
		effects = append(effects, model.Effect{
			Kind:       model.EffectSetViewingKey,
			Token:      info.Token,
			ViewingKey: newKey,
		})
	}

	return Response{
		Effects: effects,
		Event:   d.event("update_viewing_keys", model.Attr{Key: "tokens", Value: fmt.Sprint(len(infos))}),
	}, nil
}

// SetHalted flips the pool's halt switch. Admin only.
func (d *Dispatcher) SetHalted(caller common.Address, halted bool) (Response, error) {
	if d.cfg == nil {
		return Response{}, fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	if err := d.cfg.SetHalted(caller, halted); err != nil {
		return Response{}, err
	}
	return Response{
		Event: d.event("set_halted", model.Attr{Key: "halted", Value: fmt.Sprint(halted)}),
	}, nil
}

func (d *Dispatcher) guard() error {
	if d.cfg == nil {
		return fmt.Errorf("pool not initialized: %w", pool.ErrPermissionDenied)
	}
	return d.cfg.Guard()
}

func (d *Dispatcher) poolBalances(ctx context.Context) ([]model.TokenAmount, error) {
	infos := d.reg.Tokens()
	balances := make([]model.TokenAmount, 0, len(infos))
	for _, info := range infos {
		balance, err := d.balances.Balance(ctx, info.Token, d.self)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", info.Address.Hex(), err)
		}
		balances = append(balances, model.TokenAmount{Token: info.Token, Amount: balance})
	}
	return balances, nil
}

func (d *Dispatcher) event(op string, attrs ...model.Attr) model.EventRecord {
	return model.EventRecord{Op: op, Attrs: attrs, Timestamp: d.now().Unix()}
}
