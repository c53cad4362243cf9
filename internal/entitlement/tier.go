// Package entitlement ranks subscription tiers and answers capability checks.
package entitlement

import "strings"

// Tier is a subscription plan name.
type Tier string

const (
	Free    Tier = "FREE"
	Pro     Tier = "PRO"
	Premium Tier = "PREMIUM"
)

var tierRank = map[Tier]int{
	Free:    0,
	Pro:     1,
	Premium: 2,
}

// ParseTier normalises a plan name. Empty input is FREE.
func ParseTier(value string) Tier {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return Free
	}
	return Tier(normalized)
}

// Known reports whether the tier has a rank.
func (t Tier) Known() bool {
	_, ok := tierRank[ParseTier(string(t))]
	return ok
}

// HasCapability reports whether current meets or exceeds required. Unknown
// current tiers rank as FREE and unknown required tiers rank as PRO.
func HasCapability(current, required Tier) bool {
	have, ok := tierRank[ParseTier(string(current))]
	if !ok {
		have = tierRank[Free]
	}
	need, ok := tierRank[ParseTier(string(required))]
	if !ok {
		need = tierRank[Pro]
	}
	return have >= need
}

// Gate binds a required tier to a capability check.
type Gate struct {
	Required Tier
}

// NewGate returns a gate requiring the given tier, PRO when empty.
func NewGate(required Tier) Gate {
	if strings.TrimSpace(string(required)) == "" {
		required = Pro
	}
	return Gate{Required: ParseTier(string(required))}
}

// Allows reports whether tier passes the gate.
func (g Gate) Allows(tier Tier) bool {
	return HasCapability(tier, g.Required)
}
