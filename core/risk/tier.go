package risk

// Tier is the resolved risk level of a student message; severity-ordered.
type Tier string

const (
	TierLow    Tier = "low_risk"
	TierMedium Tier = "medium_risk"
	TierHigh   Tier = "high_risk"
)

var tierRanks = map[Tier]int{
	TierLow:    1,
	TierMedium: 2,
	TierHigh:   3,
}

func (t Tier) String() string { return string(t) }

// Rank returns the severity rank of the tier; unknown tiers rank 0,
// below TierLow.
func (t Tier) Rank() int {
	return tierRanks[t]
}

// AtLeast reports whether t is at least as severe as other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t.Rank() > 0
}
