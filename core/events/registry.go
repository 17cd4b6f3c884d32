package events

import "math/big"

const (
	// TypeRegistryVerifierAdded is emitted when the owner authorises a new
	// practice verifier.
	TypeRegistryVerifierAdded = "registry.verifier.added"
	// TypeRegistryVerifierRemoved is emitted when the owner revokes a
	// verifier's authorisation.
	TypeRegistryVerifierRemoved = "registry.verifier.removed"
	// TypeRegistryCatalogInitialized is emitted when the practice catalog is
	// written to state.
	TypeRegistryCatalogInitialized = "registry.catalog.initialized"
	// TypeRegistryFarmerRegistered is emitted when a farmer self-registers.
	TypeRegistryFarmerRegistered = "registry.farmer.registered"
	// TypeRegistryPracticeVerified is emitted when a verifier credits a
	// practice to a farmer.
	TypeRegistryPracticeVerified = "registry.practice.verified"
	// TypeRegistryRewardsClaimed is emitted when a farmer successfully claims
	// accumulated rewards.
	TypeRegistryRewardsClaimed = "registry.rewards.claimed"
)

// RegistryVerifierAdded captures a verifier authorisation.
type RegistryVerifierAdded struct {
	Verifier [20]byte
	Caller   [20]byte
}

// EventType implements the Event interface.
func (RegistryVerifierAdded) EventType() string { return TypeRegistryVerifierAdded }

// RegistryVerifierRemoved captures a verifier revocation.
type RegistryVerifierRemoved struct {
	Verifier [20]byte
	Caller   [20]byte
}

// EventType implements the Event interface.
func (RegistryVerifierRemoved) EventType() string { return TypeRegistryVerifierRemoved }

// RegistryCatalogInitialized captures a catalog (re-)initialisation.
type RegistryCatalogInitialized struct {
	Caller    [20]byte
	Practices uint32
}

// EventType implements the Event interface.
func (RegistryCatalogInitialized) EventType() string { return TypeRegistryCatalogInitialized }

// RegistryFarmerRegistered captures a farmer registration.
type RegistryFarmerRegistered struct {
	Farmer [20]byte
}

// EventType implements the Event interface.
func (RegistryFarmerRegistered) EventType() string { return TypeRegistryFarmerRegistered }

// RegistryPracticeVerified captures a credited practice verification.
type RegistryPracticeVerified struct {
	Farmer     [20]byte
	Verifier   [20]byte
	PracticeID uint32
	Score      uint64
	TotalScore uint64
}

// EventType implements the Event interface.
func (RegistryPracticeVerified) EventType() string { return TypeRegistryPracticeVerified }

// RegistryRewardsClaimed captures a successful reward claim and mint.
type RegistryRewardsClaimed struct {
	Farmer    [20]byte
	Reward    *big.Int
	ClaimedAt uint64
}

// EventType implements the Event interface.
func (RegistryRewardsClaimed) EventType() string { return TypeRegistryRewardsClaimed }
