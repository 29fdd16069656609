package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClimbStyle is a closed vocabulary of movement and terrain styles
type ClimbStyle string

const (
	StyleCrimpy      ClimbStyle = "Crimpy"
	StyleSlopey      ClimbStyle = "Slopey"
	StylePinchy      ClimbStyle = "Pinchy"
	StyleJuggy       ClimbStyle = "Juggy"
	StylePockets     ClimbStyle = "Pockets"
	StyleOverhang    ClimbStyle = "Overhang"
	StyleRoof        ClimbStyle = "Roof"
	StyleSlab        ClimbStyle = "Slab"
	StyleVertical    ClimbStyle = "Vertical"
	StyleDyno        ClimbStyle = "Dyno"
	StyleTechnical   ClimbStyle = "Technical"
	StylePowerful    ClimbStyle = "Powerful"
	StyleEndurance   ClimbStyle = "Endurance"
	StyleCompression ClimbStyle = "Compression"
	StyleArete       ClimbStyle = "Arete"
	StyleCrack       ClimbStyle = "Crack"
)

// FailureReason is a closed vocabulary of reasons an attempt failed
type FailureReason string

const (
	ReasonPumped         FailureReason = "Pumped"
	ReasonBadFeet        FailureReason = "Bad Feet"
	ReasonFingerStrength FailureReason = "Finger Strength"
	ReasonCoreStrength   FailureReason = "Core Strength"
	ReasonPower          FailureReason = "Power"
	ReasonFlexibility    FailureReason = "Flexibility"
	ReasonFearOfFalling  FailureReason = "Fear of Falling"
	ReasonMental         FailureReason = "Mental"
	ReasonBeta           FailureReason = "Beta"
	ReasonTechnique      FailureReason = "Technique"
	ReasonFatigue        FailureReason = "Fatigue"
	ReasonConditions     FailureReason = "Conditions"
	ReasonCrux           FailureReason = "Crux"
	ReasonReach          FailureReason = "Reach"
)

// AllClimbStyles returns the style vocabulary in display order
func AllClimbStyles() []ClimbStyle {
	return []ClimbStyle{
		StyleCrimpy, StyleSlopey, StylePinchy, StyleJuggy, StylePockets, StyleOverhang,
		StyleRoof, StyleSlab, StyleVertical, StyleDyno, StyleTechnical, StylePowerful,
		StyleEndurance, StyleCompression, StyleArete, StyleCrack,
	}
}

// AllFailureReasons returns the failure reason vocabulary in display order
func AllFailureReasons() []FailureReason {
	return []FailureReason{
		ReasonPumped, ReasonBadFeet, ReasonFingerStrength, ReasonCoreStrength, ReasonPower,
		ReasonFlexibility, ReasonFearOfFalling, ReasonMental, ReasonBeta, ReasonTechnique,
		ReasonFatigue, ReasonConditions, ReasonCrux, ReasonReach,
	}
}

// Valid reports whether s is part of the style vocabulary
func (s ClimbStyle) Valid() bool {
	for _, v := range AllClimbStyles() {
		if v == s {
			return true
		}
	}
	return false
}

// Valid reports whether r is part of the failure reason vocabulary
func (r FailureReason) Valid() bool {
	for _, v := range AllFailureReasons() {
		if v == r {
			return true
		}
	}
	return false
}

// Awkwardness is how awkward a climb felt, on an ordinal 1 (smooth) to 5 (awkward) scale.
// Zero means not recorded.
type Awkwardness int

const (
	AwkwardnessUnset Awkwardness = 0
	AwkwardnessMin   Awkwardness = 1
	AwkwardnessMax   Awkwardness = 5
)

// Legacy awkwardness labels
const (
	AwkwardnessSmooth  = "smooth"
	AwkwardnessNormal  = "normal"
	AwkwardnessAwkward = "awkward"
)

// ParseLegacyAwkwardness maps the three-value label onto the ordinal scale
func ParseLegacyAwkwardness(label string) (Awkwardness, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case AwkwardnessSmooth:
		return 1, nil
	case AwkwardnessNormal:
		return 3, nil
	case AwkwardnessAwkward:
		return 5, nil
	case "":
		return AwkwardnessUnset, nil
	default:
		return AwkwardnessUnset, fmt.Errorf("unknown awkwardness label %q", label)
	}
}

// Valid reports whether a is unset or within 1..5
func (a Awkwardness) Valid() bool {
	return a == AwkwardnessUnset || (a >= AwkwardnessMin && a <= AwkwardnessMax)
}

// Label returns the legacy three-value label for the ordinal
func (a Awkwardness) Label() string {
	switch {
	case a >= 1 && a <= 2:
		return AwkwardnessSmooth
	case a == 3:
		return AwkwardnessNormal
	case a >= 4 && a <= 5:
		return AwkwardnessAwkward
	default:
		return ""
	}
}

// UnmarshalJSON accepts either the ordinal or a legacy label
func (a *Awkwardness) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AwkwardnessUnset
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		v := Awkwardness(n)
		if !v.Valid() {
			return fmt.Errorf("awkwardness must be between %d and %d, got %d", AwkwardnessMin, AwkwardnessMax, n)
		}
		*a = v
		return nil
	}

	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("awkwardness must be a number or label: %w", err)
	}
	v, err := ParseLegacyAwkwardness(label)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
