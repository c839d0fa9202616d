package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gigescrow/crypto"
)

func testAccount(fill byte) string {
	return crypto.MustNewAddress(crypto.GigPrefix, bytes.Repeat([]byte{fill}, crypto.AddressLength)).String()
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gigd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8547" || cfg.DBBackend != BackendLevelDB || len(cfg.Tokens) != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default file written: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Auth.HMACSecretEnv != DefaultSecretEnv || again.RateLimit.Burst != 40 {
		t.Fatalf("defaults did not round trip: %+v", again)
	}
}

func TestLoadNormalizesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gigd.toml")
	writeFile(t, path, `
ListenAddress = "127.0.0.1:9000"
DBBackend = " Bolt "
DataDir = "data"
Tokens = ["gig", "usdc", "GIG", ""]
GenesisFile = "balances.yaml"

[[Genesis]]
Token = "usdc"
Account = "`+testAccount(1)+`"
Amount = "25"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBBackend != BackendBolt {
		t.Fatalf("backend = %q", cfg.DBBackend)
	}
	if strings.Join(cfg.Tokens, ",") != "GIG,USDC" {
		t.Fatalf("tokens = %v", cfg.Tokens)
	}
	if cfg.GenesisFile != filepath.Join(dir, "balances.yaml") {
		t.Fatalf("genesis file not resolved: %s", cfg.GenesisFile)
	}
	if cfg.EventLogFile() != filepath.Join("data", "events.db") {
		t.Fatalf("event log = %s", cfg.EventLogFile())
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gigd.toml")
	writeFile(t, path, "Bogus = 1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":    func(c *Config) { c.DBBackend = "postgres" },
		"tokens":     func(c *Config) { c.Tokens = nil },
		"listen":     func(c *Config) { c.ListenAddress = "" },
		"datadir":    func(c *Config) { c.DataDir = "" },
		"rate":       func(c *Config) { c.RateLimit.RequestsPerSecond = -1 },
		"burst":      func(c *Config) { c.RateLimit.Burst = 0 },
		"genesisTok": func(c *Config) { c.Genesis = []GenesisBalance{{Token: "DOGE"}} },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
	}
	mem := Default()
	mem.DBBackend = BackendMemory
	mem.DataDir = ""
	if err := mem.Validate(); err != nil {
		t.Fatalf("memory backend without data dir: %v", err)
	}
}

func TestGenesisBalances(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "balances.yaml")
	writeFile(t, yamlPath, "balances:\n  - token: gig\n    account: "+testAccount(2)+"\n    amount: \"1000\"\n")

	cfg := Default()
	cfg.GenesisFile = yamlPath
	cfg.Genesis = []GenesisBalance{{Token: "GIG", Account: testAccount(1), Amount: "5"}}

	balances, err := cfg.GenesisBalances()
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[1].Token != "GIG" || balances[1].Amount.Int64() != 1000 || balances[1].Account[0] != 2 {
		t.Fatalf("unexpected yaml balance %+v", balances[1])
	}

	cfg.Genesis = []GenesisBalance{{Token: "GIG", Account: testAccount(1), Amount: "-1"}}
	cfg.GenesisFile = ""
	if _, err := cfg.GenesisBalances(); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
	cfg.Genesis = []GenesisBalance{{Token: "GIG", Account: "nhb1xyz", Amount: "1"}}
	if _, err := cfg.GenesisBalances(); err == nil {
		t.Fatalf("expected bad account to fail")
	}
}

func TestAuthSecret(t *testing.T) {
	auth := Auth{HMACSecretEnv: "GIG_TEST_SECRET"}
	t.Setenv("GIG_TEST_SECRET", "")
	if _, err := auth.Secret(); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	t.Setenv("GIG_TEST_SECRET", " s3cret ")
	secret, err := auth.Secret()
	if err != nil || secret != "s3cret" {
		t.Fatalf("secret = %q err=%v", secret, err)
	}
}
