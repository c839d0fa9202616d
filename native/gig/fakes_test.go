package gig

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"gigescrow/core/clock"
	"gigescrow/core/events"
	"gigescrow/core/state"
	"gigescrow/storage"
)

var errFakeOverdraft = errors.New("fake: insufficient balance")

type fakeLedger struct {
	symbol   string
	balances map[[20]byte]*big.Int
	failNext error
}

func newFakeLedger(symbol string) *fakeLedger {
	return &fakeLedger{symbol: symbol, balances: make(map[[20]byte]*big.Int)}
}

func (l *fakeLedger) Token(symbol string) (TokenGateway, error) {
	if symbol != l.symbol {
		return nil, fmt.Errorf("fake: unknown token %q", symbol)
	}
	return l, nil
}

func (l *fakeLedger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}
	fromBal := l.balanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return errFakeOverdraft
	}
	l.balances[from] = new(big.Int).Sub(fromBal, amount)
	l.balances[to] = new(big.Int).Add(l.balanceOf(to), amount)
	return nil
}

func (l *fakeLedger) Balance(addr [20]byte) (*big.Int, error) {
	return new(big.Int).Set(l.balanceOf(addr)), nil
}

func (l *fakeLedger) balanceOf(addr [20]byte) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (l *fakeLedger) credit(addr [20]byte, amount int64) {
	l.balances[addr] = new(big.Int).Add(l.balanceOf(addr), big.NewInt(amount))
}

type recorder struct {
	events []events.Event
}

func (r *recorder) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recorder) amounts(t *testing.T) []int64 {
	t.Helper()
	out := make([]int64, 0, len(r.events))
	for _, evt := range r.events {
		changed, ok := evt.(events.AmountChanged)
		if !ok {
			t.Fatalf("unexpected event %T", evt)
		}
		out = append(out, changed.Balance.Int64())
	}
	return out
}

type harness struct {
	contract *Contract
	clock    *clock.Manual
	tokens   *fakeLedger
	emitted  *recorder
}

func newHarness(t *testing.T, start uint64) *harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	h := &harness{
		clock:   clock.NewManual(start),
		tokens:  newFakeLedger("GIG"),
		emitted: &recorder{},
	}
	h.contract = New(Env{
		Store:   state.NewManager(db),
		Clock:   h.clock,
		Tokens:  h.tokens,
		Emitter: h.emitted,
	})
	return h
}

func addr(fill byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = fill
	}
	return out
}
