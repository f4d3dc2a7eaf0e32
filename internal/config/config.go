// Package config loads and validates mint layer configuration from the
// environment, with optional YAML file overrides. Configuration problems are
// fatal at startup: a missing distributor identifier or RPC endpoint means
// the service is pointed at nothing, and no amount of eligibility logic can
// recover from that.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `env:"SERVER_HOST,default=0.0.0.0" yaml:"host"`
	Port int    `env:"SERVER_PORT,default=8090" yaml:"port"`
	// AllowedOrigins is the comma-separated list of browser origins allowed
	// to call the API. "*" allows any origin.
	AllowedOrigins string `env:"SERVER_ALLOWED_ORIGINS,default=*" yaml:"allowed_origins"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"LOG_FORMAT,default=text" yaml:"format"`
	Output string `env:"LOG_OUTPUT,default=stdout" yaml:"output"`
}

// DatabaseConfig controls the optional Postgres attempt store. When DSN is
// empty the service falls back to the in-memory store.
type DatabaseConfig struct {
	Driver          string `env:"DATABASE_DRIVER,default=postgres" yaml:"driver"`
	DSN             string `env:"DATABASE_URL" yaml:"dsn"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=10" yaml:"max_open_conns"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300" yaml:"conn_max_lifetime"`
}

// ChainConfig identifies the distributor and the cluster to talk to.
type ChainConfig struct {
	// CandyMachineID is the base58 address of the distributor account.
	CandyMachineID string `env:"CANDY_MACHINE_ID" yaml:"candy_machine_id"`
	// RPCEndpoint is the Solana JSON-RPC URL.
	RPCEndpoint string `env:"SOLANA_RPC_ENDPOINT" yaml:"rpc_endpoint"`
	// Network names the target cluster: devnet, testnet, or mainnet-beta.
	Network string `env:"SOLANA_NETWORK,default=devnet" yaml:"network"`
	// WalletKey is the base58-encoded secret key of the payer wallet. Empty
	// means no wallet is connected; reads still work, minting is blocked.
	WalletKey string `env:"MINT_WALLET_KEY" yaml:"wallet_key"`
	// RequestTimeout bounds individual RPC calls.
	RequestTimeout time.Duration `env:"SOLANA_RPC_TIMEOUT,default=30s" yaml:"request_timeout"`
	// RequestsPerSecond throttles calls against public RPC endpoints.
	RequestsPerSecond float64 `env:"SOLANA_RPC_RATE,default=10" yaml:"requests_per_second"`
}

// MintConfig tunes the session controller.
type MintConfig struct {
	// PollInterval is the background distribution-state refresh cadence.
	PollInterval time.Duration `env:"MINT_POLL_INTERVAL,default=15s" yaml:"poll_interval"`
	// ConfirmInterval is the signature-status polling cadence while an
	// attempt is confirming.
	ConfirmInterval time.Duration `env:"MINT_CONFIRM_INTERVAL,default=2s" yaml:"confirm_interval"`
	// ConfirmTimeout caps how long a single confirmation wait blocks the
	// submit call. The attempt itself stays in confirming until reset.
	ConfirmTimeout time.Duration `env:"MINT_CONFIRM_TIMEOUT,default=90s" yaml:"confirm_timeout"`
	// AttemptsPerMinute rate-limits mint triggers per wallet.
	AttemptsPerMinute float64 `env:"MINT_ATTEMPTS_PER_MINUTE,default=6" yaml:"attempts_per_minute"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Chain    ChainConfig    `yaml:"chain"`
	Mint     MintConfig     `yaml:"mint"`
}

// Load decodes configuration from the environment, applies YAML overrides
// from MINTD_CONFIG_FILE when set, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv("MINTD_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the presence and shape of required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chain.CandyMachineID) == "" {
		return fmt.Errorf("CANDY_MACHINE_ID is required")
	}
	if _, err := base58.Decode(c.Chain.CandyMachineID); err != nil {
		return fmt.Errorf("CANDY_MACHINE_ID is not a valid base58 address: %w", err)
	}
	if strings.TrimSpace(c.Chain.RPCEndpoint) == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	switch c.Chain.Network {
	case "devnet", "testnet", "mainnet-beta":
	default:
		return fmt.Errorf("SOLANA_NETWORK must be devnet, testnet, or mainnet-beta, got %q", c.Chain.Network)
	}
	if c.Chain.WalletKey != "" {
		if _, err := base58.Decode(c.Chain.WalletKey); err != nil {
			return fmt.Errorf("MINT_WALLET_KEY is not valid base58: %w", err)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Mint.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// WalletConnected reports whether a payer wallet key is configured.
func (c *Config) WalletConnected() bool {
	return strings.TrimSpace(c.Chain.WalletKey) != ""
}
