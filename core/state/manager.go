package state

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"agrochain/storage"
)

// Manager provides typed access to ledger state. All writes land in the
// supplied overlay so the enclosing operation can commit or discard them as a
// unit.
type Manager struct {
	kv *storage.Overlay
}

// NewManager creates a state manager operating on the provided overlay.
func NewManager(kv *storage.Overlay) *Manager {
	return &Manager{kv: kv}
}

// TokenMetadata describes a registered fungible token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

var (
	tokenPrefix   = []byte("token:")
	balancePrefix = []byte("balance:")
	rolePrefix    = []byte("role:")
	ownerKeyBytes = []byte("registry/owner")
)

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, len(tokenPrefix)+len(symbol))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr []byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) loadTokenMetadata(symbol string) (*TokenMetadata, error) {
	data, err := m.kv.Get(tokenMetadataKey(symbol))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	meta := new(TokenMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *Manager) writeTokenMetadata(symbol string, meta *TokenMetadata) error {
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	return m.kv.Update(tokenMetadataKey(symbol), encoded)
}

// RegisterToken stores the metadata for a native token. Registration is
// idempotent-protected: a symbol can be registered once.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("token %s: name must not be empty", normalized)
	}
	if existing, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}
	meta := &TokenMetadata{
		Symbol:   normalized,
		Name:     name,
		Decimals: decimals,
	}
	return m.writeTokenMetadata(normalized, meta)
}

// Token retrieves metadata for a registered token.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	return m.loadTokenMetadata(normalized)
}

// TokenExists reports whether the provided token symbol is registered.
func (m *Manager) TokenExists(symbol string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return false
	}
	meta, err := m.loadTokenMetadata(normalized)
	if err != nil || meta == nil {
		return false
	}
	return true
}

// SetBalance stores an account balance for the provided token.
func (m *Manager) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if meta, err := m.loadTokenMetadata(normalized); err != nil {
		return err
	} else if meta == nil {
		return fmt.Errorf("token %s not registered", normalized)
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.kv.Update(balanceKey(addr, normalized), encoded)
}

// Balance retrieves a token balance for the provided account and token.
// Missing entries default to zero.
func (m *Manager) Balance(addr []byte, symbol string) (*big.Int, error) {
	data, err := m.kv.Get(balanceKey(addr, strings.ToUpper(strings.TrimSpace(symbol))))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetRole associates an address with the specified role. Duplicate assignments
// are ignored while the stored list remains sorted for determinism.
func (m *Manager) SetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	key := roleKey(trimmed)
	members, err := m.loadRoleMembers(key)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.kv.Update(key, encoded)
}

// UnsetRole removes the address from the role membership. Removing an absent
// member is a no-op so subsequent lookups simply default to false.
func (m *Manager) UnsetRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("role must not be empty")
	}
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	key := roleKey(trimmed)
	members, err := m.loadRoleMembers(key)
	if err != nil {
		return err
	}
	filtered := members[:0]
	for _, existing := range members {
		if !bytes.Equal(existing, addr) {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == len(members) {
		return nil
	}
	if len(filtered) == 0 {
		return m.kv.Delete(key)
	}
	encoded, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return err
	}
	return m.kv.Update(key, encoded)
}

func (m *Manager) loadRoleMembers(hashedKey []byte) ([][]byte, error) {
	data, err := m.kv.Get(hashedKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return [][]byte{}, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// RoleMembers returns all addresses assigned to the provided role.
func (m *Manager) RoleMembers(role string) ([][]byte, error) {
	return m.loadRoleMembers(roleKey(strings.TrimSpace(role)))
}

// HasRole reports whether the provided address is associated with the
// specified role. Errors while reading the underlying state result in a false
// return, matching the best-effort semantics required by the callers.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	members, err := m.loadRoleMembers(roleKey(strings.TrimSpace(role)))
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// SetRegistryOwner stores the ledger owner. The owner is written once at
// initialisation and is immutable afterwards.
func (m *Manager) SetRegistryOwner(addr [20]byte) error {
	if addr == ([20]byte{}) {
		return fmt.Errorf("owner address must not be empty")
	}
	if _, ok, err := m.RegistryOwner(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("registry owner already set")
	}
	return m.kv.Update(kvKey(ownerKeyBytes), addr[:])
}

// RegistryOwner returns the configured ledger owner. The boolean reports
// whether an owner has been initialised.
func (m *Manager) RegistryOwner() ([20]byte, bool, error) {
	var owner [20]byte
	data, err := m.kv.Get(kvKey(ownerKeyBytes))
	if err != nil {
		return owner, false, err
	}
	if len(data) != len(owner) {
		return owner, false, nil
	}
	copy(owner[:], data)
	return owner, true, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256 so arbitrary-length keys map
// onto the fixed-width keyspace.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.kv.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.kv.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.kv.Delete(kvKey(key))
}
