package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"agrochain/core/events"
	"agrochain/core/state"
	"agrochain/native/registry"
	"agrochain/storage"
)

// Ledger executes registry operations against the persistent store. Every
// public operation runs serialized inside its own staged overlay: either all
// of its writes commit, or none do. Events are buffered per operation and only
// forwarded after a successful commit.
type Ledger struct {
	mu      sync.Mutex
	db      storage.Database
	emitter events.Emitter
	nowFn   func() uint64
}

// bufferedEmitter collects engine events until the enclosing operation
// commits.
type bufferedEmitter struct {
	pending []events.Event
}

func (b *bufferedEmitter) Emit(e events.Event) {
	b.pending = append(b.pending, e)
}

// NewLedger opens a ledger over the provided store. On first boot the
// immutable registry owner is written and the reward token registered; on
// subsequent boots the stored owner must match the configured one.
func NewLedger(db storage.Database, owner [20]byte) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("core: owner address required")
	}
	ledger := &Ledger{
		db:      db,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}

	overlay := storage.NewOverlay(db)
	manager := state.NewManager(overlay)
	stored, ok, err := manager.RegistryOwner()
	if err != nil {
		return nil, err
	}
	if ok {
		if stored != owner {
			return nil, fmt.Errorf("core: registry owner mismatch: state holds %x", stored)
		}
		return ledger, nil
	}
	if err := manager.SetRegistryOwner(owner); err != nil {
		return nil, err
	}
	if err := manager.RegisterToken(registry.TokenSymbol, "AgroChain Credit", 18); err != nil {
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// SetEmitter configures the event emitter that receives committed operation
// events. Passing nil resets it to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the ledger clock. Primarily leveraged in tests.
func (l *Ledger) SetNowFunc(now func() uint64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if now == nil {
		l.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	l.nowFn = now
}

// withEngine runs fn against an engine bound to a fresh overlay. The overlay
// commits only when fn returns nil; any error discards every staged write.
func (l *Ledger) withEngine(fn func(*registry.Engine) error) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("core: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	overlay := storage.NewOverlay(l.db)
	engine := registry.NewEngine(state.NewManager(overlay))
	buffer := &bufferedEmitter{}
	engine.SetEmitter(buffer)
	engine.SetNowFunc(l.nowFn)

	if err := fn(engine); err != nil {
		overlay.Reset()
		return err
	}
	if err := overlay.Commit(); err != nil {
		overlay.Reset()
		return err
	}
	for _, evt := range buffer.pending {
		l.emitter.Emit(evt)
	}
	return nil
}

// AddVerifier authorises an account to verify practices. Owner only.
func (l *Ledger) AddVerifier(caller, verifier [20]byte) error {
	return l.withEngine(func(e *registry.Engine) error {
		return e.AddVerifier(caller, verifier)
	})
}

// RemoveVerifier revokes an account's verifier authorisation. Owner only.
func (l *Ledger) RemoveVerifier(caller, verifier [20]byte) error {
	return l.withEngine(func(e *registry.Engine) error {
		return e.RemoveVerifier(caller, verifier)
	})
}

// InitializePractices writes the fixed practice catalog. Owner only.
func (l *Ledger) InitializePractices(caller [20]byte) error {
	return l.withEngine(func(e *registry.Engine) error {
		return e.InitializePractices(caller)
	})
}

// RegisterFarmer creates a farmer record for the caller.
func (l *Ledger) RegisterFarmer(caller [20]byte) error {
	return l.withEngine(func(e *registry.Engine) error {
		return e.RegisterFarmer(caller)
	})
}

// VerifyPractice credits an active practice to a registered farmer. Verifier
// only.
func (l *Ledger) VerifyPractice(caller, farmer [20]byte, practiceID uint32) error {
	return l.withEngine(func(e *registry.Engine) error {
		return e.VerifyPractice(caller, farmer, practiceID)
	})
}

// ClaimRewards mints the caller's accumulated reward and returns the minted
// amount.
func (l *Ledger) ClaimRewards(caller [20]byte) (*big.Int, error) {
	var reward *big.Int
	err := l.withEngine(func(e *registry.Engine) error {
		minted, err := e.ClaimRewards(caller)
		if err != nil {
			return err
		}
		reward = minted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// GetFarmer fetches the farmer record for the provided account.
func (l *Ledger) GetFarmer(addr [20]byte) (*registry.FarmerRecord, bool, error) {
	var (
		record *registry.FarmerRecord
		found  bool
	)
	err := l.withEngine(func(e *registry.Engine) error {
		var err error
		record, found, err = e.GetFarmer(addr)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return record, found, nil
}

// GetPractice fetches the catalog entry for the provided practice ID.
func (l *Ledger) GetPractice(id uint32) (*registry.Practice, bool, error) {
	var (
		practice *registry.Practice
		found    bool
	)
	err := l.withEngine(func(e *registry.Engine) error {
		var err error
		practice, found, err = e.GetPractice(id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return practice, found, nil
}

// IsVerifier reports whether the account currently holds the verifier role.
func (l *Ledger) IsVerifier(addr [20]byte) (bool, error) {
	var verifier bool
	err := l.withEngine(func(e *registry.Engine) error {
		verifier = e.IsVerifier(addr)
		return nil
	})
	if err != nil {
		return false, err
	}
	return verifier, nil
}

// Balance returns the account's reward-token balance.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("core: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	manager := state.NewManager(storage.NewOverlay(l.db))
	return manager.Balance(addr[:], registry.TokenSymbol)
}

// TokenSupply returns the total minted reward-token supply.
func (l *Ledger) TokenSupply() (*big.Int, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("core: ledger not initialised")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	manager := state.NewManager(storage.NewOverlay(l.db))
	return manager.TokenSupply(registry.TokenSymbol)
}
