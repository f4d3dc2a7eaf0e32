package runtime

import (
	"testing"

	"github.com/candyops/mint_layer/internal/config"
	"github.com/candyops/mint_layer/pkg/logger"
)

func TestBuildStoresWithoutDSN(t *testing.T) {
	cfg := &config.Config{}
	store, db, err := buildStores(cfg, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store for memory fallback, got %T", store)
	}
	if db != nil {
		t.Fatalf("expected nil db without a DSN")
	}
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	_, err := openDatabase(config.DatabaseConfig{Driver: "no-such-driver", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}
