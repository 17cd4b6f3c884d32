package state

import (
	"math/big"
	"testing"

	"agrochain/storage"
)

func TestAdjustTokenSupply(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	manager := NewManager(storage.NewOverlay(db))

	total, err := manager.TokenSupply("AGRI")
	if err != nil {
		t.Fatalf("initial supply: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("expected zero supply, got %s", total)
	}

	updated, err := manager.AdjustTokenSupply("agri", big.NewInt(2200))
	if err != nil {
		t.Fatalf("adjust supply: %v", err)
	}
	if updated.Cmp(big.NewInt(2200)) != 0 {
		t.Fatalf("unexpected supply after mint: %s", updated)
	}

	if _, err := manager.AdjustTokenSupply("AGRI", big.NewInt(-5000)); err == nil {
		t.Fatalf("expected supply underflow to fail")
	}

	total, err = manager.TokenSupply("AGRI")
	if err != nil {
		t.Fatalf("reload supply: %v", err)
	}
	if total.Cmp(big.NewInt(2200)) != 0 {
		t.Fatalf("unexpected supply after failed adjustment: %s", total)
	}
}
