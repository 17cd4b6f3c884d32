package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"agrochain/config"
	"agrochain/core"
	"agrochain/observability/logging"
	"agrochain/rpc"
	"agrochain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("AGROCHAIN_ENV"))
	logger := logging.Setup("agrochaind", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	owner, err := cfg.Owner()
	if err != nil {
		logger.Error("Invalid owner address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	ledger, err := core.NewLedger(db, owner)
	if err != nil {
		logger.Error("Failed to open ledger", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Ledger ready",
		slog.String("network", cfg.NetworkName),
		slog.String("dataDir", cfg.DataDir),
		slog.String("rpc", cfg.RPCAddress),
	)

	server := rpc.NewServer(ledger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
