package gig

import (
	"fmt"
	"math/big"
)

// Storage is the key/value substrate the contract persists into.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Clock supplies the current Unix time in seconds.
type Clock interface {
	Now() uint64
}

// TokenGateway moves and reports balances of one fungible token.
type TokenGateway interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	Balance(addr [20]byte) (*big.Int, error)
}

// TokenRegistry resolves a token symbol to its gateway.
type TokenRegistry interface {
	Token(symbol string) (TokenGateway, error)
}

func (c *Contract) get(key Key, out interface{}) (bool, error) {
	if c.store == nil {
		return false, errNilStore
	}
	ok, err := c.store.KVGet(key.Bytes(), out)
	if err != nil {
		return false, fmt.Errorf("gig: read %s: %w", key.Kind, err)
	}
	return ok, nil
}

func (c *Contract) put(key Key, value interface{}) error {
	if c.store == nil {
		return errNilStore
	}
	if err := c.store.KVPut(key.Bytes(), value); err != nil {
		return fmt.Errorf("gig: write %s: %w", key.Kind, err)
	}
	return nil
}

// mustGet reads a configuration slot, failing with ErrNotInitialized when the
// slot was never written.
func (c *Contract) mustGet(kind KeyKind, out interface{}) error {
	ok, err := c.get(fixedKey(kind), out)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

func (c *Contract) initialized() (bool, error) {
	var wallet [20]byte
	return c.get(fixedKey(KeyWallet), &wallet)
}

func (c *Contract) writeConfig(cfg Config) error {
	if err := c.put(fixedKey(KeyWallet), cfg.Provider); err != nil {
		return err
	}
	if err := c.put(fixedKey(KeyIsClaimed), cfg.Claimed); err != nil {
		return err
	}
	if err := c.put(fixedKey(KeyStarted), cfg.StartedAt); err != nil {
		return err
	}
	if err := c.put(fixedKey(KeyDeadline), cfg.Deadline); err != nil {
		return err
	}
	if err := c.put(fixedKey(KeyToken), cfg.Token); err != nil {
		return err
	}
	return c.put(fixedKey(KeyRating), cfg.Rating)
}

// Provider returns the identity entitled to the Success-phase payout.
func (c *Contract) Provider() ([20]byte, error) {
	var provider [20]byte
	err := c.mustGet(KeyWallet, &provider)
	return provider, err
}

// Deadline returns the configured deadline.
func (c *Contract) Deadline() (uint64, error) {
	var deadline uint64
	err := c.mustGet(KeyDeadline, &deadline)
	return deadline, err
}

// StartedAt returns the initialization timestamp.
func (c *Contract) StartedAt() (uint64, error) {
	var started uint64
	err := c.mustGet(KeyStarted, &started)
	return started, err
}

// Token returns the escrowed token symbol.
func (c *Contract) Token() (string, error) {
	var token string
	err := c.mustGet(KeyToken, &token)
	return token, err
}

// Rating returns the stored provider rating.
func (c *Contract) Rating() (uint64, error) {
	var rating uint64
	err := c.mustGet(KeyRating, &rating)
	return rating, err
}

// Claimed reports whether the provider has taken the payout.
func (c *Contract) Claimed() (bool, error) {
	var claimed bool
	err := c.mustGet(KeyIsClaimed, &claimed)
	return claimed, err
}

// Skills returns the provider's advertised skills, empty when never set.
func (c *Contract) Skills() ([]string, error) {
	if ok, err := c.initialized(); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotInitialized
	}
	var skills []string
	ok, err := c.get(fixedKey(KeySkills), &skills)
	if err != nil {
		return nil, err
	}
	if !ok || skills == nil {
		return []string{}, nil
	}
	return skills, nil
}

// Config loads every configuration slot.
func (c *Contract) Config() (Config, error) {
	var cfg Config
	var err error
	if cfg.Provider, err = c.Provider(); err != nil {
		return Config{}, err
	}
	if cfg.StartedAt, err = c.StartedAt(); err != nil {
		return Config{}, err
	}
	if cfg.Deadline, err = c.Deadline(); err != nil {
		return Config{}, err
	}
	if cfg.Token, err = c.Token(); err != nil {
		return Config{}, err
	}
	if cfg.Rating, err = c.Rating(); err != nil {
		return Config{}, err
	}
	if cfg.Claimed, err = c.Claimed(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
