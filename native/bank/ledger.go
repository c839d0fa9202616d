package bank

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"gigescrow/core/events"
)

var (
	ErrUnsupportedToken    = errors.New("bank: unsupported token")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must not be negative")
	errNilStore            = errors.New("bank: state not configured")
)

var (
	balancePrefix = []byte("bank/balance/")
	supplyPrefix  = []byte("bank/supply/")
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is the fungible-token ledger: balances keyed by (token, account)
// with a tracked total supply per token. Every movement is a debit and a
// credit of the same amount, so supply only changes through Mint.
type Ledger struct {
	store   kvStore
	tokens  map[string]struct{}
	emitter events.Emitter
}

// NewLedger creates a ledger over store that accepts the given token symbols.
func NewLedger(store kvStore, tokens []string) *Ledger {
	set := make(map[string]struct{}, len(tokens))
	for _, symbol := range tokens {
		if normalized := NormalizeToken(symbol); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return &Ledger{store: store, tokens: set, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the ledger. Passing nil resets
// the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// NormalizeToken returns the canonical upper-case form of a token symbol.
func NormalizeToken(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Tokens lists the supported token symbols in sorted order.
func (l *Ledger) Tokens() []string {
	out := make([]string, 0, len(l.tokens))
	for symbol := range l.tokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Supported validates symbol against the configured token set.
func (l *Ledger) Supported(symbol string) (string, error) {
	normalized := NormalizeToken(symbol)
	if _, ok := l.tokens[normalized]; !ok || normalized == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedToken, symbol)
	}
	return normalized, nil
}

func balanceKey(token string, addr [20]byte) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(token)+1+len(addr))
	buf = append(buf, balancePrefix...)
	buf = append(buf, token...)
	buf = append(buf, ':')
	buf = append(buf, addr[:]...)
	return buf
}

func supplyKey(token string) []byte {
	buf := make([]byte, 0, len(supplyPrefix)+len(token))
	buf = append(buf, supplyPrefix...)
	return append(buf, token...)
}

func (l *Ledger) readAmount(key []byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, errNilStore
	}
	out := new(big.Int)
	ok, err := l.store.KVGet(key, out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return out, nil
}

// Balance returns the balance of addr in token.
func (l *Ledger) Balance(token string, addr [20]byte) (*big.Int, error) {
	normalized, err := l.Supported(token)
	if err != nil {
		return nil, err
	}
	return l.readAmount(balanceKey(normalized, addr))
}

// Supply returns the total minted amount of token.
func (l *Ledger) Supply(token string) (*big.Int, error) {
	normalized, err := l.Supported(token)
	if err != nil {
		return nil, err
	}
	return l.readAmount(supplyKey(normalized))
}

// Transfer moves amount of token from one account to another. Zero-value
// transfers succeed without touching state.
func (l *Ledger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	normalized, err := l.Supported(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBal, err := l.readAmount(balanceKey(normalized, from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	if from != to {
		toBal, err := l.readAmount(balanceKey(normalized, to))
		if err != nil {
			return err
		}
		if err := l.store.KVPut(balanceKey(normalized, from), new(big.Int).Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := l.store.KVPut(balanceKey(normalized, to), new(big.Int).Add(toBal, amount)); err != nil {
			return err
		}
	}
	l.emitter.Emit(events.Transfer{Asset: normalized, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint credits amount of token to addr and grows the supply.
func (l *Ledger) Mint(token string, to [20]byte, amount *big.Int) error {
	normalized, err := l.Supported(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: mint amount must be positive")
	}
	bal, err := l.readAmount(balanceKey(normalized, to))
	if err != nil {
		return err
	}
	supply, err := l.readAmount(supplyKey(normalized))
	if err != nil {
		return err
	}
	if err := l.store.KVPut(balanceKey(normalized, to), new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	if err := l.store.KVPut(supplyKey(normalized), new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Mint{Asset: normalized, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Client scopes the ledger to a single token.
type Client struct {
	ledger *Ledger
	token  string
}

// Client returns a token-scoped view of the ledger.
func (l *Ledger) Client(symbol string) (*Client, error) {
	normalized, err := l.Supported(symbol)
	if err != nil {
		return nil, err
	}
	return &Client{ledger: l, token: normalized}, nil
}

// Symbol returns the token this client is bound to.
func (c *Client) Symbol() string { return c.token }

func (c *Client) Transfer(from, to [20]byte, amount *big.Int) error {
	return c.ledger.Transfer(c.token, from, to, amount)
}

func (c *Client) Balance(addr [20]byte) (*big.Int, error) {
	return c.ledger.Balance(c.token, addr)
}
