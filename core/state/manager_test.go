package state

import (
	"math/big"
	"testing"

	"agrochain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(storage.NewOverlay(db))
}

func TestRegisterTokenOnce(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.RegisterToken("agri", "AgroChain Credit", 18); err != nil {
		t.Fatalf("register token: %v", err)
	}
	meta, err := manager.Token("AGRI")
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if meta == nil || meta.Symbol != "AGRI" || meta.Decimals != 18 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if err := manager.RegisterToken("AGRI", "AgroChain Credit", 18); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if !manager.TokenExists("agri") {
		t.Fatalf("expected token to exist")
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.RegisterToken("AGRI", "AgroChain Credit", 18); err != nil {
		t.Fatalf("register token: %v", err)
	}

	addr := []byte("farmer-address-00000")
	balance, err := manager.Balance(addr, "AGRI")
	if err != nil {
		t.Fatalf("initial balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}

	if err := manager.SetBalance(addr, "AGRI", big.NewInt(2200)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	balance, err = manager.Balance(addr, "agri")
	if err != nil {
		t.Fatalf("read balance: %v", err)
	}
	if balance.Cmp(big.NewInt(2200)) != 0 {
		t.Fatalf("unexpected balance: %s", balance)
	}

	if err := manager.SetBalance(addr, "AGRI", big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative balance to be rejected")
	}
}

func TestRoleMembership(t *testing.T) {
	manager := newTestManager(t)
	role := "ROLE_VERIFIER"
	addr := []byte{0x01, 0x02, 0x03}

	if manager.HasRole(role, addr) {
		t.Fatalf("expected no membership before assignment")
	}
	if err := manager.SetRole(role, addr); err != nil {
		t.Fatalf("set role: %v", err)
	}
	// Duplicate assignment is a no-op success.
	if err := manager.SetRole(role, addr); err != nil {
		t.Fatalf("re-set role: %v", err)
	}
	if !manager.HasRole(role, addr) {
		t.Fatalf("expected membership after assignment")
	}
	members, err := manager.RoleMembers(role)
	if err != nil {
		t.Fatalf("role members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected one member, got %d", len(members))
	}

	if err := manager.UnsetRole(role, addr); err != nil {
		t.Fatalf("unset role: %v", err)
	}
	if manager.HasRole(role, addr) {
		t.Fatalf("expected membership removed")
	}
	// Removing an absent member stays a no-op.
	if err := manager.UnsetRole(role, addr); err != nil {
		t.Fatalf("unset absent role: %v", err)
	}
}

func TestRegistryOwnerImmutable(t *testing.T) {
	manager := newTestManager(t)

	if _, ok, err := manager.RegistryOwner(); err != nil || ok {
		t.Fatalf("expected no owner before initialisation (ok=%v err=%v)", ok, err)
	}

	var owner [20]byte
	owner[19] = 0x01
	if err := manager.SetRegistryOwner(owner); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	stored, ok, err := manager.RegistryOwner()
	if err != nil || !ok {
		t.Fatalf("load owner: ok=%v err=%v", ok, err)
	}
	if stored != owner {
		t.Fatalf("unexpected owner: %x", stored)
	}

	var other [20]byte
	other[19] = 0x02
	if err := manager.SetRegistryOwner(other); err == nil {
		t.Fatalf("expected second owner assignment to fail")
	}
}

func TestKVRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	type record struct {
		Name  string
		Score uint64
	}
	key := []byte("registry/practice/1")
	if err := manager.KVPut(key, &record{Name: "Organic Farming", Score: 10}); err != nil {
		t.Fatalf("kv put: %v", err)
	}

	var out record
	ok, err := manager.KVGet(key, &out)
	if err != nil {
		t.Fatalf("kv get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if out.Name != "Organic Farming" || out.Score != 10 {
		t.Fatalf("unexpected record: %+v", out)
	}

	if err := manager.KVDelete(key); err != nil {
		t.Fatalf("kv delete: %v", err)
	}
	ok, err = manager.KVGet(key, &out)
	if err != nil {
		t.Fatalf("kv get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}
