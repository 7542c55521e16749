package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"stablepool/internal/model"
	"stablepool/internal/pool"
	"stablepool/internal/registry"
)

var (
	poolAddr   = common.BytesToAddress([]byte{0xAA})
	adminAddr  = common.BytesToAddress([]byte{0xAD})
	shareAddr  = common.BytesToAddress([]byte{0x05})
	senderAddr = common.BytesToAddress([]byte{0x5E})
)

func tok(b byte) model.Token {
	return model.Token{Address: common.BytesToAddress([]byte{b}), CodeHash: "hash"}
}

// fakeChain serves decimals, balances, and supplies from fixtures.
type fakeChain struct {
	decimals map[common.Address]uint8
	balances map[common.Address]*uint256.Int
	supply   map[common.Address]*uint256.Int
}

func (f *fakeChain) Decimals(_ context.Context, t model.Token) (uint8, error) {
	d, ok := f.decimals[t.Address]
	if !ok {
		return 0, errors.New("no decimals fixture")
	}
	return d, nil
}

func (f *fakeChain) Balance(_ context.Context, t model.Token, _ common.Address) (*uint256.Int, error) {
	b, ok := f.balances[t.Address]
	if !ok {
		return nil, errors.New("no balance fixture")
	}
	return b.Clone(), nil
}

func (f *fakeChain) TotalSupply(_ context.Context, t model.Token) (*uint256.Int, error) {
	s, ok := f.supply[t.Address]
	if !ok {
		return nil, errors.New("no supply fixture")
	}
	return s.Clone(), nil
}

func initMsg() InitMsg {
	return InitMsg{
		Tokens:             []model.Token{tok(1), tok(2)},
		InitialViewingKey:  "vk",
		ShareTokenCodeHash: "share-hash",
		ShareTokenLabel:    "stable-lp",
		Admin:              adminAddr,
		FeeNumerator:       997,
		FeeDenominator:     1000,
		RoundDown:          true,
	}
}

func activeDispatcher(t *testing.T, chain *fakeChain) *Dispatcher {
	t.Helper()
	d := New(poolAddr, chain, nil)
	if _, err := d.Initialize(context.Background(), initMsg(), registry.DecimalsFunc(chain.Decimals)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := d.PostInitialize(shareAddr); err != nil {
		t.Fatalf("post initialize: %v", err)
	}
	return d
}

func defaultChain() *fakeChain {
	return &fakeChain{
		decimals: map[common.Address]uint8{tok(1).Address: 6, tok(2).Address: 18},
		balances: map[common.Address]*uint256.Int{
			tok(1).Address: uint256.NewInt(5_000_000),
			tok(2).Address: uint256.NewInt(3_000),
		},
		supply: map[common.Address]*uint256.Int{shareAddr: uint256.NewInt(1_000)},
	}
}

func TestInitializeEffects(t *testing.T) {
	chain := defaultChain()
	d := New(poolAddr, chain, nil)

	resp, err := d.Initialize(context.Background(), initMsg(), registry.DecimalsFunc(chain.Decimals))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// viewing key + register receive per token, then the share token
	// instantiation
	if len(resp.Effects) != 5 {
		t.Fatalf("effects = %d, want 5", len(resp.Effects))
	}
	if resp.Effects[0].Kind != model.EffectSetViewingKey || resp.Effects[1].Kind != model.EffectRegisterReceive {
		t.Fatalf("unexpected leading effects: %+v", resp.Effects[:2])
	}
	if last := resp.Effects[len(resp.Effects)-1]; last.Kind != model.EffectInstantiateShareToken {
		t.Fatalf("last effect = %s, want instantiate_share_token", last.Kind)
	}
	if d.Config().State() != pool.StateAwaitingShareToken {
		t.Fatalf("state = %s", d.Config().State())
	}
}

func TestInitializeRejectsZeroFeeDenominator(t *testing.T) {
	chain := defaultChain()
	d := New(poolAddr, chain, nil)

	msg := initMsg()
	msg.FeeDenominator = 0
	if _, err := d.Initialize(context.Background(), msg, registry.DecimalsFunc(chain.Decimals)); err == nil {
		t.Fatalf("expected error for zero fee denominator")
	}
	if d.Config() != nil {
		t.Fatalf("config stored despite failed initialization")
	}
}

func TestInitializeRejectsExcessDecimals(t *testing.T) {
	chain := defaultChain()
	chain.decimals[tok(2).Address] = 19
	d := New(poolAddr, chain, nil)

	_, err := d.Initialize(context.Background(), initMsg(), registry.DecimalsFunc(chain.Decimals))
	if !errors.Is(err, registry.ErrPrecisionExceeded) {
		t.Fatalf("expected ErrPrecisionExceeded, got %v", err)
	}
	if d.Registry() != nil {
		t.Fatalf("registry stored despite failed initialization")
	}
}

func TestPostInitializeOnce(t *testing.T) {
	chain := defaultChain()
	d := New(poolAddr, chain, nil)
	if _, err := d.Initialize(context.Background(), initMsg(), registry.DecimalsFunc(chain.Decimals)); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	resp, err := d.PostInitialize(shareAddr)
	if err != nil {
		t.Fatalf("first post initialize: %v", err)
	}
	if len(resp.Effects) != 1 || resp.Effects[0].Kind != model.EffectRegisterReceive {
		t.Fatalf("unexpected effects: %+v", resp.Effects)
	}

	if _, err := d.PostInitialize(common.BytesToAddress([]byte{0x77})); !errors.Is(err, pool.ErrPermissionDenied) {
		t.Fatalf("second post initialize: expected ErrPermissionDenied, got %v", err)
	}
	if d.Config().ShareToken().Address != shareAddr {
		t.Fatalf("binding changed by rejected call")
	}
}

func TestProvideLiquidity(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	resp, err := d.ProvideLiquidity(context.Background(), senderAddr, []model.TokenAmount{
		{Token: tok(2), Amount: uint256.NewInt(100)}, // 18 decimals
		{Token: tok(1), Amount: uint256.NewInt(100)}, // 6 decimals
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}

	if len(resp.Effects) != 3 {
		t.Fatalf("effects = %d, want 3", len(resp.Effects))
	}
	mint := resp.Effects[2]
	if mint.Kind != model.EffectMint || mint.Recipient != senderAddr {
		t.Fatalf("unexpected mint effect: %+v", mint)
	}
	if want := "100000000000100"; mint.Amount != want {
		t.Fatalf("minted share = %s, want %s", mint.Amount, want)
	}
}

func TestProvideLiquidityUnsupportedTokenEmitsNothing(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	resp, err := d.ProvideLiquidity(context.Background(), senderAddr, []model.TokenAmount{
		{Token: tok(9), Amount: uint256.NewInt(1)},
	})
	if !errors.Is(err, pool.ErrUnsupportedToken) {
		t.Fatalf("expected ErrUnsupportedToken, got %v", err)
	}
	if len(resp.Effects) != 0 {
		t.Fatalf("failed request emitted %d effects", len(resp.Effects))
	}
}

func TestReceiveSwap(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	resp, err := d.Receive(context.Background(), tok(1).Address, senderAddr, uint256.NewInt(1_000_000), SwapPayload{ToToken: tok(2).Address})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if len(resp.Effects) != 1 {
		t.Fatalf("effects = %d, want 1", len(resp.Effects))
	}
	transfer := resp.Effects[0]
	if transfer.Kind != model.EffectTransfer || transfer.Recipient != senderAddr {
		t.Fatalf("unexpected transfer: %+v", transfer)
	}
	if want := "997000000000000000"; transfer.Amount != want {
		t.Fatalf("return amount = %s, want %s", transfer.Amount, want)
	}
}

func TestReceiveSwapExplicitRecipient(t *testing.T) {
	d := activeDispatcher(t, defaultChain())
	recipient := common.BytesToAddress([]byte{0x33})

	resp, err := d.Receive(context.Background(), tok(1).Address, senderAddr, uint256.NewInt(1_000_000), SwapPayload{
		ToToken:   tok(2).Address,
		Recipient: recipient,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if resp.Effects[0].Recipient != recipient {
		t.Fatalf("recipient = %s, want %s", resp.Effects[0].Recipient.Hex(), recipient.Hex())
	}
}

func TestReceiveSwapUnknownSource(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	_, err := d.Receive(context.Background(), tok(9).Address, senderAddr, uint256.NewInt(1), SwapPayload{ToToken: tok(2).Address})
	if !errors.Is(err, pool.ErrUnsupportedToken) {
		t.Fatalf("expected ErrUnsupportedToken, got %v", err)
	}
}

func TestReceiveWithdraw(t *testing.T) {
	chain := defaultChain()
	d := activeDispatcher(t, chain)

	// withdraw 1/10 of the share supply
	resp, err := d.Receive(context.Background(), shareAddr, senderAddr, uint256.NewInt(100), WithdrawPayload{})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	// one refund per token, then the share burn
	if len(resp.Effects) != 3 {
		t.Fatalf("effects = %d, want 3", len(resp.Effects))
	}
	if resp.Effects[0].Amount != "500000" {
		t.Fatalf("refund[0] = %s, want 500000", resp.Effects[0].Amount)
	}
	if resp.Effects[1].Amount != "300" {
		t.Fatalf("refund[1] = %s, want 300", resp.Effects[1].Amount)
	}
	if burn := resp.Effects[2]; burn.Kind != model.EffectBurn || burn.Amount != "100" {
		t.Fatalf("unexpected burn: %+v", burn)
	}
}

func TestReceiveWithdrawFullSupply(t *testing.T) {
	chain := defaultChain()
	d := activeDispatcher(t, chain)

	resp, err := d.Receive(context.Background(), shareAddr, senderAddr, uint256.NewInt(1_000), WithdrawPayload{})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if resp.Effects[0].Amount != "5000000" || resp.Effects[1].Amount != "3000" {
		t.Fatalf("full withdrawal did not return the pool: %+v", resp.Effects[:2])
	}
}

func TestReceiveWithdrawWrongNotifier(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	_, err := d.Receive(context.Background(), tok(1).Address, senderAddr, uint256.NewInt(1), WithdrawPayload{})
	if !errors.Is(err, pool.ErrUnsupportedToken) {
		t.Fatalf("expected ErrUnsupportedToken, got %v", err)
	}
}

func TestHaltGate(t *testing.T) {
	d := activeDispatcher(t, defaultChain())
	if _, err := d.SetHalted(adminAddr, true); err != nil {
		t.Fatalf("halt: %v", err)
	}

	if _, err := d.ProvideLiquidity(context.Background(), senderAddr, nil); !errors.Is(err, pool.ErrPoolHalted) {
		t.Fatalf("provide on halted pool: expected ErrPoolHalted, got %v", err)
	}
	if _, err := d.Receive(context.Background(), tok(1).Address, senderAddr, uint256.NewInt(1), SwapPayload{ToToken: tok(2).Address}); !errors.Is(err, pool.ErrPoolHalted) {
		t.Fatalf("swap on halted pool: expected ErrPoolHalted, got %v", err)
	}
	if _, err := d.Receive(context.Background(), shareAddr, senderAddr, uint256.NewInt(1), WithdrawPayload{}); !errors.Is(err, pool.ErrPoolHalted) {
		t.Fatalf("withdraw on halted pool: expected ErrPoolHalted, got %v", err)
	}

	// queries still work
	if _, err := d.GetPools(context.Background()); err != nil {
		t.Fatalf("query on halted pool: %v", err)
	}
}

func TestUpdateViewingKeys(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	if _, err := d.UpdateViewingKeys(senderAddr, "new"); !errors.Is(err, pool.ErrPermissionDenied) {
		t.Fatalf("non-admin rotation: expected ErrPermissionDenied, got %v", err)
	}

	resp, err := d.UpdateViewingKeys(adminAddr, "new")
	if err != nil {
		t.Fatalf("rotation: %v", err)
	}
	if len(resp.Effects) != 2 {
		t.Fatalf("effects = %d, want 2", len(resp.Effects))
	}
	for _, effect := range resp.Effects {
		if effect.Kind != model.EffectSetViewingKey || effect.ViewingKey != "new" {
			t.Fatalf("unexpected effect: %+v", effect)
		}
	}
	info, _ := d.Registry().Lookup(tok(1).Address)
	if info.ViewingKey != "new" {
		t.Fatalf("registry viewing key = %q", info.ViewingKey)
	}
}

func TestGetPools(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	resp, err := d.GetPools(context.Background())
	if err != nil {
		t.Fatalf("get pools: %v", err)
	}
	if len(resp.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(resp.Assets))
	}
	if resp.Assets[0].Amount.Uint64() != 5_000_000 || resp.Assets[1].Amount.Uint64() != 3_000 {
		t.Fatalf("unexpected balances: %+v", resp.Assets)
	}
	if resp.TotalShares.Uint64() != 1_000 {
		t.Fatalf("total shares = %d, want 1000", resp.TotalShares.Uint64())
	}
}

func TestGetMostNeededToken(t *testing.T) {
	chain := defaultChain()
	// token 1 (6 decimals) holds 5.0 canonical, token 2 (18 decimals) holds
	// 3000 base units, which is nearly nothing at canonical scale.
	d := activeDispatcher(t, chain)

	info, err := d.GetMostNeededToken(context.Background())
	if err != nil {
		t.Fatalf("most needed: %v", err)
	}
	if info.Address != tok(2).Address {
		t.Fatalf("most needed = %s, want token 2", info.Address.Hex())
	}
}

func TestGetConfig(t *testing.T) {
	d := activeDispatcher(t, defaultChain())

	cfg, err := d.GetConfig()
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.FeeNumerator != 997 || cfg.FeeDenominator != 1000 {
		t.Fatalf("unexpected fee: %d/%d", cfg.FeeNumerator, cfg.FeeDenominator)
	}
	if cfg.State != "active" {
		t.Fatalf("state = %q, want active", cfg.State)
	}
	if cfg.ShareToken != shareAddr.Hex() {
		t.Fatalf("share token = %s", cfg.ShareToken)
	}
}
