package events

import (
	"math/big"

	"gigescrow/core/types"
	"gigescrow/crypto"
)

const (
	// TypeTransfer is emitted for every token balance movement.
	TypeTransfer = "bank.transfer"
	// TypeMint is emitted when new units are credited by genesis or an operator.
	TypeMint = "bank.mint"
)

type Transfer struct {
	Asset  string
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["from"] = crypto.FromArray(e.From).String()
	attrs["to"] = crypto.FromArray(e.To).String()
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Mint struct {
	Asset  string
	To     [20]byte
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	attrs := map[string]string{
		"to":     crypto.FromArray(e.To).String(),
		"amount": formatAmount(e.Amount),
	}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	return &types.Event{Type: TypeMint, Attributes: attrs}
}
