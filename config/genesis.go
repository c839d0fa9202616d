package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gigescrow/crypto"
)

// GenesisBalance is a balance to mint on first start, in configuration form.
type GenesisBalance struct {
	Token   string `toml:"Token" yaml:"token"`
	Account string `toml:"Account" yaml:"account"`
	Amount  string `toml:"Amount" yaml:"amount"`
}

// Balance is a parsed GenesisBalance.
type Balance struct {
	Token   string
	Account [20]byte
	Amount  *big.Int
}

type genesisFile struct {
	Balances []GenesisBalance `yaml:"balances"`
}

// GenesisBalances merges the inline Genesis entries with those from
// GenesisFile and parses them.
func (c *Config) GenesisBalances() ([]Balance, error) {
	entries := append([]GenesisBalance(nil), c.Genesis...)
	if path := strings.TrimSpace(c.GenesisFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
		var file genesisFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("genesis: decode %s: %w", path, err)
		}
		entries = append(entries, file.Balances...)
	}

	out := make([]Balance, 0, len(entries))
	for i, entry := range entries {
		account, err := crypto.ParseAccount(entry.Account)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d]: account: %w", i, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(entry.Amount), 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("genesis[%d]: amount %q must be a positive integer", i, entry.Amount)
		}
		token := strings.ToUpper(strings.TrimSpace(entry.Token))
		if token == "" {
			return nil, fmt.Errorf("genesis[%d]: token required", i)
		}
		out = append(out, Balance{Token: token, Account: account, Amount: amount})
	}
	return out, nil
}
