package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token identifies a tradable asset contract. Equality is by address; the
// code hash is the credential required to call the contract.
type Token struct {
	Address  common.Address `json:"address"`
	CodeHash string         `json:"code_hash"`
}

// TokenAmount pairs a token with an amount in the token's native decimals.
type TokenAmount struct {
	Token  Token
	Amount *uint256.Int
}

// TokenInfo is a registry entry: a token plus the precision and viewing key
// fixed at pool initialization.
type TokenInfo struct {
	Token
	ViewingKey string `json:"viewing_key"`
	Decimals   uint8  `json:"decimals"`
}
