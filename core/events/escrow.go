package events

import (
	"math/big"

	"gigescrow/core/types"
)

const (
	// TypeAmountChanged carries the contract's held balance after a deposit or
	// a refund.
	TypeAmountChanged = "amount_changed"
)

// AmountChanged is published with the escrow contract's current token balance.
type AmountChanged struct {
	Token   string
	Balance *big.Int
}

func (AmountChanged) EventType() string { return TypeAmountChanged }

func (e AmountChanged) Event() *types.Event {
	attrs := map[string]string{"amount": formatAmount(e.Balance)}
	if asset := normalizeAsset(e.Token); asset != "" {
		attrs["token"] = asset
	}
	return &types.Event{Type: TypeAmountChanged, Attributes: attrs}
}
