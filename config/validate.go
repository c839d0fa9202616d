package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	switch c.DBBackend {
	case BackendMemory:
	case BackendLevelDB, BackendBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("config: DataDir required for %s backend", c.DBBackend)
		}
	default:
		return fmt.Errorf("config: unknown DBBackend %q", c.DBBackend)
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("config: at least one token required")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("config: rate limit burst must be positive")
	}
	supported := make(map[string]struct{}, len(c.Tokens))
	for _, token := range c.Tokens {
		supported[token] = struct{}{}
	}
	for i, bal := range c.Genesis {
		if _, ok := supported[strings.ToUpper(strings.TrimSpace(bal.Token))]; !ok {
			return fmt.Errorf("config: genesis[%d] token %q not in Tokens", i, bal.Token)
		}
	}
	return nil
}
