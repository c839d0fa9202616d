package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Config is the gigd node configuration.
type Config struct {
	ListenAddress string           `toml:"ListenAddress"`
	DataDir       string           `toml:"DataDir"`
	DBBackend     string           `toml:"DBBackend"`
	EventLogPath  string           `toml:"EventLogPath"`
	Tokens        []string         `toml:"Tokens"`
	GenesisFile   string           `toml:"GenesisFile"`
	Genesis       []GenesisBalance `toml:"Genesis"`
	Logging       Logging          `toml:"Logging"`
	Auth          Auth             `toml:"Auth"`
	RateLimit     RateLimit        `toml:"RateLimit"`
	Telemetry     Telemetry        `toml:"Telemetry"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		ListenAddress: ":8547",
		DataDir:       "./gig-data",
		DBBackend:     BackendLevelDB,
		EventLogPath:  "events.db",
		Tokens:        []string{"GIG"},
		Genesis:       []GenesisBalance{},
		Logging:       Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Auth: Auth{
			HMACSecretEnv: DefaultSecretEnv,
			Issuer:        "gig-operator",
			Audience:      "gigd",
		},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Telemetry: Telemetry{Endpoint: "localhost:4318", Insecure: true},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}
	cfg.normalize(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize(baseDir string) {
	c.DBBackend = strings.ToLower(strings.TrimSpace(c.DBBackend))
	if c.DBBackend == "" {
		c.DBBackend = BackendLevelDB
	}
	tokens := make([]string, 0, len(c.Tokens))
	seen := make(map[string]struct{}, len(c.Tokens))
	for _, token := range c.Tokens {
		normalized := strings.ToUpper(strings.TrimSpace(token))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		tokens = append(tokens, normalized)
	}
	c.Tokens = tokens
	if c.Genesis == nil {
		c.Genesis = []GenesisBalance{}
	}
	if file := strings.TrimSpace(c.GenesisFile); file != "" && !filepath.IsAbs(file) && baseDir != "" {
		c.GenesisFile = filepath.Join(baseDir, file)
	}
}

// EventLogFile resolves EventLogPath against DataDir. An empty path disables
// the event log.
func (c *Config) EventLogFile() string {
	path := strings.TrimSpace(c.EventLogPath)
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
