package registry

import (
	"errors"
	"math/big"
	"time"

	"agrochain/core/events"
)

// State describes the minimal functionality the registry engine needs from the
// surrounding state implementation.
type State interface {
	RegistryOwner() ([20]byte, bool, error)
	HasRole(role string, addr []byte) bool
	SetRole(role string, addr []byte) error
	UnsetRole(role string, addr []byte) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	Balance(addr []byte, symbol string) (*big.Int, error)
	SetBalance(addr []byte, symbol string, amount *big.Int) error
	AdjustTokenSupply(symbol string, delta *big.Int) (*big.Int, error)
}

// Engine implements the farmer registry and reward operations against the
// ledger state. Every operation takes the calling account explicitly; the
// engine performs no ambient identity lookups.
type Engine struct {
	st      State
	emitter events.Emitter
	nowFn   func() uint64
}

// NewEngine constructs an engine backed by the provided state.
func NewEngine(st State) *Engine {
	return &Engine{
		st:      st,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the ledger clock. Primarily leveraged in tests and by
// the enclosing ledger to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// IsOwner reports whether the caller is the registry owner.
func (e *Engine) IsOwner(caller [20]byte) bool {
	if e == nil || e.st == nil {
		return false
	}
	owner, ok, err := e.st.RegistryOwner()
	if err != nil || !ok {
		return false
	}
	return owner == caller
}

// IsVerifier reports whether the account is authorised to verify practices.
// Accounts never added (or since removed) default to false.
func (e *Engine) IsVerifier(addr [20]byte) bool {
	if e == nil || e.st == nil {
		return false
	}
	return e.st.HasRole(RoleVerifier, addr[:])
}

// AddVerifier authorises an account to verify practices. Only the owner may
// call it; re-adding an existing verifier is a no-op success.
func (e *Engine) AddVerifier(caller, verifier [20]byte) error {
	if e == nil || e.st == nil {
		return errors.New("registry: engine not initialised")
	}
	if !e.IsOwner(caller) {
		return ErrNotAuthorized
	}
	if err := e.st.SetRole(RoleVerifier, verifier[:]); err != nil {
		return err
	}
	e.emit(events.RegistryVerifierAdded{Verifier: verifier, Caller: caller})
	return nil
}

// RemoveVerifier revokes an account's verifier authorisation. Only the owner
// may call it; removing an absent verifier is a no-op success.
func (e *Engine) RemoveVerifier(caller, verifier [20]byte) error {
	if e == nil || e.st == nil {
		return errors.New("registry: engine not initialised")
	}
	if !e.IsOwner(caller) {
		return ErrNotAuthorized
	}
	if err := e.st.UnsetRole(RoleVerifier, verifier[:]); err != nil {
		return err
	}
	e.emit(events.RegistryVerifierRemoved{Verifier: verifier, Caller: caller})
	return nil
}

// InitializePractices writes the fixed practice catalog, overwriting any prior
// entries at those IDs. Re-invocation resets the catalog to defaults.
func (e *Engine) InitializePractices(caller [20]byte) error {
	if e == nil || e.st == nil {
		return errors.New("registry: engine not initialised")
	}
	if !e.IsOwner(caller) {
		return ErrNotAuthorized
	}
	catalog := DefaultCatalog()
	for id, practice := range catalog {
		entry := practice
		if err := e.st.KVPut(practiceKey(id), &entry); err != nil {
			return err
		}
	}
	e.emit(events.RegistryCatalogInitialized{Caller: caller, Practices: uint32(len(catalog))})
	return nil
}

// RegisterFarmer creates a fresh farmer record for the caller. Any account may
// register itself exactly once.
func (e *Engine) RegisterFarmer(caller [20]byte) error {
	if e == nil || e.st == nil {
		return errors.New("registry: engine not initialised")
	}
	exists, err := e.st.KVGet(farmerKey(caller), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRegistered
	}
	record := &FarmerRecord{Registered: true, Practices: []uint32{}}
	if err := e.st.KVPut(farmerKey(caller), record); err != nil {
		return err
	}
	e.emit(events.RegistryFarmerRegistered{Farmer: caller})
	return nil
}

// VerifyPractice credits the practice's score to the farmer and appends the
// practice ID to the farmer's log. The caller must hold the verifier role, the
// farmer must be registered, the practice must exist and be active, and the
// log must have capacity; otherwise nothing is written.
func (e *Engine) VerifyPractice(caller, farmer [20]byte, practiceID uint32) error {
	if e == nil || e.st == nil {
		return errors.New("registry: engine not initialised")
	}
	if !e.IsVerifier(caller) {
		return ErrNotAuthorized
	}
	record := new(FarmerRecord)
	found, err := e.st.KVGet(farmerKey(farmer), record)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotRegistered
	}
	practice := new(Practice)
	found, err = e.st.KVGet(practiceKey(practiceID), practice)
	if err != nil {
		return err
	}
	if !found || !practice.Active {
		return ErrInvalidPractice
	}
	if len(record.Practices) >= MaxPractices {
		return ErrPracticeLogFull
	}
	record.Practices = append(record.Practices, practiceID)
	record.TotalScore += practice.Score
	if err := e.st.KVPut(farmerKey(farmer), record); err != nil {
		return err
	}
	e.emit(events.RegistryPracticeVerified{
		Farmer:     farmer,
		Verifier:   caller,
		PracticeID: practiceID,
		Score:      practice.Score,
		TotalScore: record.TotalScore,
	})
	return nil
}

// ClaimRewards mints the caller's accumulated score times RewardMultiplier to
// their token balance and stamps the claim time. Claims are gated by
// CooldownPeriod measured against the previous claim, or against time zero for
// a farmer who never claimed.
func (e *Engine) ClaimRewards(caller [20]byte) (*big.Int, error) {
	if e == nil || e.st == nil {
		return nil, errors.New("registry: engine not initialised")
	}
	record := new(FarmerRecord)
	found, err := e.st.KVGet(farmerKey(caller), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotRegistered
	}
	now := e.now()
	if now <= record.LastClaim || now-record.LastClaim <= CooldownPeriod {
		return nil, ErrCooldownActive
	}
	reward := new(big.Int).Mul(
		new(big.Int).SetUint64(record.TotalScore),
		new(big.Int).SetUint64(RewardMultiplier),
	)
	balance, err := e.st.Balance(caller[:], TokenSymbol)
	if err != nil {
		return nil, err
	}
	if err := e.st.SetBalance(caller[:], TokenSymbol, new(big.Int).Add(balance, reward)); err != nil {
		return nil, err
	}
	if _, err := e.st.AdjustTokenSupply(TokenSymbol, reward); err != nil {
		return nil, err
	}
	record.LastClaim = now
	if err := e.st.KVPut(farmerKey(caller), record); err != nil {
		return nil, err
	}
	e.emit(events.RegistryRewardsClaimed{Farmer: caller, Reward: new(big.Int).Set(reward), ClaimedAt: now})
	return reward, nil
}

// GetFarmer fetches the farmer record for the provided account.
func (e *Engine) GetFarmer(addr [20]byte) (*FarmerRecord, bool, error) {
	if e == nil || e.st == nil {
		return nil, false, errors.New("registry: engine not initialised")
	}
	record := new(FarmerRecord)
	found, err := e.st.KVGet(farmerKey(addr), record)
	if err != nil || !found {
		return nil, false, err
	}
	return record, true, nil
}

// GetPractice fetches the catalog entry for the provided practice ID.
func (e *Engine) GetPractice(id uint32) (*Practice, bool, error) {
	if e == nil || e.st == nil {
		return nil, false, errors.New("registry: engine not initialised")
	}
	practice := new(Practice)
	found, err := e.st.KVGet(practiceKey(id), practice)
	if err != nil || !found {
		return nil, false, err
	}
	return practice, true, nil
}
