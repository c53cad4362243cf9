package chart

import (
	"errors"
	"fmt"
	"strings"

	"stockchart/internal/entitlement"
)

// Variant selects the chart representation.
type Variant string

const (
	VariantMountain    Variant = "mountain"
	VariantCandlestick Variant = "candlestick"
)

var (
	// ErrVariantLocked is returned when the plan tier does not unlock a variant.
	ErrVariantLocked = errors.New("chart variant requires a higher plan tier")
	// ErrUnknownVariant is returned by ParseVariant for unrecognised names.
	ErrUnknownVariant = errors.New("unknown chart variant")
)

// ParseVariant parses a variant name. Empty input is mountain.
func ParseVariant(value string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(VariantMountain), "area":
		return VariantMountain, nil
	case string(VariantCandlestick), "candle", "candles":
		return VariantCandlestick, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, value)
	}
}

// SelectVariant resolves the variant a tier may render. A locked request
// resolves to mountain together with an error wrapping ErrVariantLocked.
func SelectVariant(requested Variant, tier entitlement.Tier, gate entitlement.Gate) (Variant, error) {
	if requested != VariantCandlestick {
		return VariantMountain, nil
	}
	if !gate.Allows(tier) {
		return VariantMountain, fmt.Errorf("%w: candlestick needs %s, have %s", ErrVariantLocked, gate.Required, entitlement.ParseTier(string(tier)))
	}
	return VariantCandlestick, nil
}

// Control describes one variant toggle as presented to the user.
type Control struct {
	Variant Variant
	Label   string
	Enabled bool
	Reason  string
}

// Controls lists the variant toggles for a tier. Mountain is always enabled.
func Controls(tier entitlement.Tier, gate entitlement.Gate) []Control {
	candle := Control{Variant: VariantCandlestick, Label: "Candlestick", Enabled: true}
	if !gate.Allows(tier) {
		candle.Enabled = false
		candle.Reason = "Requires " + string(gate.Required)
	}
	return []Control{
		{Variant: VariantMountain, Label: "Mountain", Enabled: true},
		candle,
	}
}
