package bank

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gigescrow/core/events"
	"gigescrow/core/state"
	"gigescrow/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewLedger(state.NewManager(db), []string{"gig", " usdc "})
}

func TestLedgerTokens(t *testing.T) {
	ledger := newTestLedger(t)
	require.Equal(t, []string{"GIG", "USDC"}, ledger.Tokens())

	symbol, err := ledger.Supported(" usdc")
	require.NoError(t, err)
	require.Equal(t, "USDC", symbol)

	_, err = ledger.Supported("DOGE")
	require.ErrorIs(t, err, ErrUnsupportedToken)
	_, err = ledger.Balance("", newTestAddress(1))
	require.ErrorIs(t, err, ErrUnsupportedToken)
}

func TestLedgerMintAndTransfer(t *testing.T) {
	ledger := newTestLedger(t)
	var emitted []events.Event
	ledger.SetEmitter(events.EmitterFunc(func(evt events.Event) { emitted = append(emitted, evt) }))

	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	require.NoError(t, ledger.Mint("GIG", alice, big.NewInt(100)))
	require.NoError(t, ledger.Transfer("gig", alice, bob, big.NewInt(40)))

	aliceBal, err := ledger.Balance("GIG", alice)
	require.NoError(t, err)
	require.Equal(t, int64(60), aliceBal.Int64())
	bobBal, err := ledger.Balance("GIG", bob)
	require.NoError(t, err)
	require.Equal(t, int64(40), bobBal.Int64())

	supply, err := ledger.Supply("GIG")
	require.NoError(t, err)
	require.Equal(t, int64(100), supply.Int64())

	require.Len(t, emitted, 2)
	require.Equal(t, events.TypeMint, emitted[0].EventType())
	require.Equal(t, events.TypeTransfer, emitted[1].EventType())
}

func TestLedgerTransferRejectsOverdraft(t *testing.T) {
	ledger := newTestLedger(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	require.NoError(t, ledger.Mint("GIG", alice, big.NewInt(5)))

	err := ledger.Transfer("GIG", alice, bob, big.NewInt(6))
	require.True(t, errors.Is(err, ErrInsufficientBalance), "got %v", err)
	require.ErrorIs(t, ledger.Transfer("GIG", alice, bob, big.NewInt(-1)), ErrInvalidAmount)

	// zero transfers are free even from empty accounts
	require.NoError(t, ledger.Transfer("GIG", bob, alice, big.NewInt(0)))
	require.NoError(t, ledger.Transfer("GIG", bob, alice, nil))

	require.Error(t, ledger.Mint("GIG", alice, big.NewInt(0)))
}

func TestLedgerSelfTransferKeepsBalance(t *testing.T) {
	ledger := newTestLedger(t)
	alice := newTestAddress(0x01)
	require.NoError(t, ledger.Mint("GIG", alice, big.NewInt(10)))
	require.NoError(t, ledger.Transfer("GIG", alice, alice, big.NewInt(10)))

	bal, err := ledger.Balance("GIG", alice)
	require.NoError(t, err)
	require.Equal(t, int64(10), bal.Int64())
}

func TestClientScopesToken(t *testing.T) {
	ledger := newTestLedger(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	require.NoError(t, ledger.Mint("USDC", alice, big.NewInt(9)))

	client, err := ledger.Client("usdc")
	require.NoError(t, err)
	require.Equal(t, "USDC", client.Symbol())
	require.NoError(t, client.Transfer(alice, bob, big.NewInt(4)))

	bal, err := client.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, int64(4), bal.Int64())

	gigBal, err := ledger.Balance("GIG", bob)
	require.NoError(t, err)
	require.Zero(t, gigBal.Sign())

	_, err = ledger.Client("DOGE")
	require.ErrorIs(t, err, ErrUnsupportedToken)
}
