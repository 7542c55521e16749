package model

import "github.com/ethereum/go-ethereum/common"

// EffectKind names an instruction the pool asks the host to deliver to an
// external contract.
type EffectKind string

const (
	EffectTransfer              EffectKind = "transfer"
	EffectTransferFrom          EffectKind = "transfer_from"
	EffectMint                  EffectKind = "mint"
	EffectBurn                  EffectKind = "burn"
	EffectSetViewingKey         EffectKind = "set_viewing_key"
	EffectRegisterReceive       EffectKind = "register_receive"
	EffectInstantiateShareToken EffectKind = "instantiate_share_token"
)

// Effect is a single outbound instruction. The pool never mutates another
// contract's balance itself; it only emits effects for the host to execute.
// Amounts are decimal strings in the target token's native precision.
type Effect struct {
	Kind       EffectKind     `json:"kind"`
	Token      Token          `json:"token"`
	Owner      common.Address `json:"owner,omitempty"`
	Recipient  common.Address `json:"recipient,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	ViewingKey string         `json:"viewing_key,omitempty"`
	Label      string         `json:"label,omitempty"`
}
