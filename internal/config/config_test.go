package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validAddress = "4SfVX7DKLxhQmYcEGDXz1vLtBCwa2F6aBdCKK1e4osvT"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CANDY_MACHINE_ID", validAddress)
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Fatalf("unexpected default port: %d", cfg.Server.Port)
	}
	if cfg.Chain.Network != "devnet" {
		t.Fatalf("unexpected default network: %q", cfg.Chain.Network)
	}
	if cfg.Mint.PollInterval != 15*time.Second {
		t.Fatalf("unexpected default poll interval: %s", cfg.Mint.PollInterval)
	}
	if cfg.WalletConnected() {
		t.Fatal("no wallet key set, WalletConnected must be false")
	}
}

func TestLoadRequiresDistributor(t *testing.T) {
	t.Setenv("CANDY_MACHINE_ID", "")
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without CANDY_MACHINE_ID")
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	t.Setenv("CANDY_MACHINE_ID", "not-base58-0OIl")
	t.Setenv("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed distributor address")
	}
}

func TestLoadRejectsUnknownNetwork(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLANA_NETWORK", "localnet")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown network")
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "mintd.yaml")
	content := "server:\n  port: 9999\nchain:\n  network: testnet\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("MINTD_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("file override not applied, port = %d", cfg.Server.Port)
	}
	if cfg.Chain.Network != "testnet" {
		t.Fatalf("file override not applied, network = %q", cfg.Chain.Network)
	}
}

func TestValidatePortRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
