package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultSecretEnv names the environment variable holding the RPC JWT secret.
const DefaultSecretEnv = "GIG_RPC_JWT_SECRET"

// Logging configures the process logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Auth configures bearer-token checks on mutating RPC methods.
type Auth struct {
	Disabled      bool   `toml:"Disabled"`
	HMACSecretEnv string `toml:"HMACSecretEnv"`
	Issuer        string `toml:"Issuer"`
	Audience      string `toml:"Audience"`
}

// Secret reads the HMAC secret from the configured environment variable.
func (a Auth) Secret() (string, error) {
	env := strings.TrimSpace(a.HMACSecretEnv)
	if env == "" {
		env = DefaultSecretEnv
	}
	secret := strings.TrimSpace(os.Getenv(env))
	if secret == "" {
		return "", fmt.Errorf("auth: environment variable %s is empty", env)
	}
	return secret, nil
}

// RateLimit bounds requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}
