package registry

import "fmt"

const (
	// CooldownPeriod is the minimum ledger time that must elapse between two
	// successful reward claims by the same farmer. The very first claim is
	// gated against time zero as well, preventing reward extraction right
	// after registration.
	CooldownPeriod uint64 = 1440
	// RewardMultiplier converts accumulated verification score into minted
	// token units.
	RewardMultiplier uint64 = 100
	// MaxPractices bounds the per-farmer practice log.
	MaxPractices = 6
	// TokenSymbol is the reward token minted by the claim operation.
	TokenSymbol = "AGRI"
	// RoleVerifier marks accounts authorised to verify farmer practices.
	RoleVerifier = "ROLE_VERIFIER"
)

// FarmerRecord tracks a registered farmer's verification history and claim
// state. TotalScore only ever grows; Practices is an append-only log bounded
// by MaxPractices, duplicates permitted.
type FarmerRecord struct {
	Registered bool
	TotalScore uint64
	LastClaim  uint64
	Practices  []uint32
}

// Practice describes a recognised sustainable farming behaviour. Score is
// fixed at catalog initialisation; only active practices may be newly
// verified.
type Practice struct {
	Name   string
	Score  uint64
	Active bool
}

// DefaultCatalog returns the fixed set of recognised practices keyed by
// practice ID. Re-initialising the catalog resets entries to these values.
func DefaultCatalog() map[uint32]Practice {
	return map[uint32]Practice{
		1: {Name: "Organic Farming", Score: 10, Active: true},
		2: {Name: "Crop Rotation", Score: 8, Active: true},
		3: {Name: "Water Conservation", Score: 9, Active: true},
		4: {Name: "Agroforestry", Score: 12, Active: true},
		5: {Name: "Composting", Score: 7, Active: true},
		6: {Name: "Integrated Pest Management", Score: 11, Active: true},
	}
}

var (
	farmerPrefix   = []byte("registry/farmer/")
	practicePrefix = []byte("registry/practice/")
)

func farmerKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", farmerPrefix, addr))
}

func practiceKey(id uint32) []byte {
	return []byte(fmt.Sprintf("%s%d", practicePrefix, id))
}
