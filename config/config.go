package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"agrochain/crypto"
)

// Config captures the daemon settings loaded from the TOML configuration file.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	NetworkName  string `toml:"NetworkName"`
	OwnerAddress string `toml:"OwnerAddress"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks the settings a running daemon depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return fmt.Errorf("OwnerAddress must be set to the registry owner address")
	}
	if _, err := c.Owner(); err != nil {
		return err
	}
	return nil
}

// Owner decodes the configured registry owner address.
func (c *Config) Owner() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.OwnerAddress))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid OwnerAddress: %w", err)
	}
	return addr.Array(), nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./agrochain-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "agrochain-local"
	}
}

// createDefault creates and saves a default configuration file. The owner
// address intentionally stays empty: the deployment must pin it explicitly
// before the daemon starts.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
