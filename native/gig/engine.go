package gig

import (
	"fmt"
	"math/big"

	"gigescrow/core/clock"
	"gigescrow/core/events"
	"gigescrow/crypto"
)

// VaultLabel seeds the derivation of the contract's own account.
const VaultLabel = "gig/escrow/vault"

// VaultAddress is the account that holds escrowed funds.
var VaultAddress = crypto.DeriveAddress(VaultLabel)

// Env bundles the collaborators a Contract runs against.
type Env struct {
	Store   Storage
	Clock   Clock
	Tokens  TokenRegistry
	Emitter events.Emitter
	// Self overrides the vault account. The zero value selects VaultAddress.
	Self [20]byte
}

// Contract is the escrow operation surface. It holds no state of its own:
// every call reads storage and resolves the phase afresh. Callers are
// expected to serialise calls and supply a transactional store.
type Contract struct {
	store   Storage
	clock   Clock
	tokens  TokenRegistry
	emitter events.Emitter
	self    [20]byte
}

// New creates a contract bound to env.
func New(env Env) *Contract {
	c := &Contract{
		store:   env.Store,
		clock:   env.Clock,
		tokens:  env.Tokens,
		emitter: env.Emitter,
		self:    env.Self,
	}
	if c.clock == nil {
		c.clock = clock.System{}
	}
	if c.emitter == nil {
		c.emitter = events.NoopEmitter{}
	}
	if c.self == ([20]byte{}) {
		c.self = VaultAddress
	}
	return c
}

// Address returns the vault account of the contract.
func (c *Contract) Address() [20]byte { return c.self }

func (c *Contract) now() uint64 {
	return c.clock.Now()
}

func (c *Contract) gateway() (TokenGateway, string, error) {
	token, err := c.Token()
	if err != nil {
		return nil, "", err
	}
	if c.tokens == nil {
		return nil, "", errNilTokens
	}
	gateway, err := c.tokens.Token(token)
	if err != nil {
		return nil, "", fmt.Errorf("gig: resolve token %s: %w", token, err)
	}
	return gateway, token, nil
}

// Initialize records the escrow configuration. The rating is stored as given;
// range checks only apply through SetRating.
func (c *Contract) Initialize(provider [20]byte, deadline uint64, token string, rating uint64) error {
	ok, err := c.initialized()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	symbol := NormalizeToken(token)
	if symbol == "" {
		return ErrInvalidToken
	}
	if c.tokens != nil {
		if _, err := c.tokens.Token(symbol); err != nil {
			return fmt.Errorf("gig: resolve token %s: %w", symbol, err)
		}
	}
	return c.writeConfig(Config{
		Provider:  provider,
		StartedAt: c.now(),
		Deadline:  deadline,
		Token:     symbol,
		Rating:    rating,
		Claimed:   false,
	})
}

// State resolves the current phase.
func (c *Contract) State() (Phase, error) {
	deadline, err := c.Deadline()
	if err != nil {
		return "", err
	}
	claimed, err := c.Claimed()
	if err != nil {
		return "", err
	}
	return ResolvePhase(c.now(), deadline, claimed), nil
}

// Balance reports what user can expect from the escrow. During the Success
// phase the provider sees the whole vault balance and everyone else zero;
// otherwise it is the user's ledger entry.
func (c *Contract) Balance(user [20]byte) (*big.Int, error) {
	provider, err := c.Provider()
	if err != nil {
		return nil, err
	}
	phase, err := c.State()
	if err != nil {
		return nil, err
	}
	if phase == PhaseSuccess {
		if user != provider {
			return big.NewInt(0), nil
		}
		return c.ContractBalance()
	}
	return c.Deposited(user)
}

// Deposit moves amount from user into the vault and credits the user's
// ledger entry. Deposits are only accepted before the deadline.
func (c *Contract) Deposit(user [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if user == c.self {
		return ErrVaultAccount
	}
	phase, err := c.State()
	if err != nil {
		return err
	}
	if phase != PhaseInProgress {
		return ErrEscrowClosed
	}
	gateway, token, err := c.gateway()
	if err != nil {
		return err
	}
	previous, err := c.Deposited(user)
	if err != nil {
		return err
	}
	if err := gateway.Transfer(user, c.self, amount); err != nil {
		return fmt.Errorf("gig: deposit transfer: %w", err)
	}
	if err := c.setDeposited(user, new(big.Int).Add(previous, amount)); err != nil {
		return err
	}
	return c.emitBalance(gateway, token)
}

// Withdraw pays out according to the current phase. After the deadline the
// provider claims the vault once; after the claim depositors collect their
// ledger entry divided by the rating.
func (c *Contract) Withdraw(to [20]byte) error {
	phase, err := c.State()
	if err != nil {
		return err
	}
	provider, err := c.Provider()
	if err != nil {
		return err
	}
	switch phase {
	case PhaseInProgress:
		return ErrEscrowOpen
	case PhaseSuccess:
		return c.claim(to, provider)
	default:
		return c.refund(to, provider)
	}
}

func (c *Contract) claim(to, provider [20]byte) error {
	if to != provider {
		return ErrNotAuthorized
	}
	claimed, err := c.Claimed()
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	gateway, _, err := c.gateway()
	if err != nil {
		return err
	}
	balance, err := gateway.Balance(c.self)
	if err != nil {
		return fmt.Errorf("gig: vault balance: %w", err)
	}
	if err := gateway.Transfer(c.self, provider, balance); err != nil {
		return fmt.Errorf("gig: claim transfer: %w", err)
	}
	return c.put(fixedKey(KeyIsClaimed), true)
}

func (c *Contract) refund(to, provider [20]byte) error {
	if to == provider {
		return ErrGigOver
	}
	if to == c.self {
		return ErrVaultAccount
	}
	rating, err := c.Rating()
	if err != nil {
		return err
	}
	if rating == 0 {
		return ErrDivisionByZero
	}
	deposited, err := c.Deposited(to)
	if err != nil {
		return err
	}
	amount := new(big.Int).Quo(deposited, new(big.Int).SetUint64(rating))
	if err := c.setDeposited(to, big.NewInt(0)); err != nil {
		return err
	}
	gateway, token, err := c.gateway()
	if err != nil {
		return err
	}
	if err := gateway.Transfer(c.self, to, amount); err != nil {
		return fmt.Errorf("gig: refund transfer: %w", err)
	}
	return c.emitBalance(gateway, token)
}

func (c *Contract) emitBalance(gateway TokenGateway, token string) error {
	balance, err := gateway.Balance(c.self)
	if err != nil {
		return fmt.Errorf("gig: vault balance: %w", err)
	}
	c.emitter.Emit(events.AmountChanged{Token: token, Balance: balance})
	return nil
}

// SetRating replaces the provider rating. The rating is frozen once the gig
// is over because refunds are computed from it.
func (c *Contract) SetRating(rating uint64) error {
	phase, err := c.State()
	if err != nil {
		return err
	}
	if phase == PhaseOver {
		return ErrGigOver
	}
	if err := ValidateRating(rating); err != nil {
		return err
	}
	return c.put(fixedKey(KeyRating), rating)
}

// SetSkills stores the provider's skills, dropping blank entries.
func (c *Contract) SetSkills(skills []string) error {
	ok, err := c.initialized()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return c.put(fixedKey(KeySkills), normalizeSkills(skills))
}

// Snapshot gathers the configuration, phase, ledger entry of user and the
// vault balance in one read.
func (c *Contract) Snapshot(user [20]byte) (*Snapshot, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	deposited, err := c.Deposited(user)
	if err != nil {
		return nil, err
	}
	balance, err := c.ContractBalance()
	if err != nil {
		return nil, err
	}
	skills, err := c.Skills()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Config:          cfg,
		Phase:           ResolvePhase(c.now(), cfg.Deadline, cfg.Claimed),
		Deposited:       deposited,
		ContractBalance: balance,
		Skills:          skills,
	}, nil
}
