package config

import (
	"os"
	"path/filepath"
	"testing"

	"agrochain/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8080" {
		t.Fatalf("unexpected RPC address: %s", cfg.RPCAddress)
	}
	if cfg.NetworkName != "agrochain-local" {
		t.Fatalf("unexpected network name: %s", cfg.NetworkName)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file written: %v", err)
	}

	// A default config has no owner pinned yet and must not validate.
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation failure without owner")
	}
}

func TestLoadExistingAndValidate(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := key.PubKey().Address()

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "RPCAddress = \":9090\"\nDataDir = \"/tmp/agro\"\nOwnerAddress = \"" + owner.String() + "\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9090" {
		t.Fatalf("unexpected RPC address: %s", cfg.RPCAddress)
	}
	// Missing fields fall back to defaults.
	if cfg.NetworkName != "agrochain-local" {
		t.Fatalf("unexpected network name: %s", cfg.NetworkName)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	decoded, err := cfg.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if decoded != owner.Array() {
		t.Fatalf("owner mismatch")
	}
}

func TestValidateRejectsBadOwner(t *testing.T) {
	cfg := &Config{RPCAddress: ":8080", DataDir: "/tmp/agro", OwnerAddress: "garbage"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid owner to fail validation")
	}
}
