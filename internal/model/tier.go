package model

import (
	"fmt"
	"strings"
)

// RiskTier classifies a holding by risk.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierMedium
	TierHigh
)

// Tiers lists every tier in processing order.
var Tiers = [...]RiskTier{TierLow, TierMedium, TierHigh}

func (t RiskTier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
}

// Label is the Portuguese name used by the banking database and in reports.
func (t RiskTier) Label() string {
	switch t {
	case TierLow:
		return "Baixo"
	case TierMedium:
		return "Moderado"
	case TierHigh:
		return "Alto"
	default:
		return t.String()
	}
}

func (t RiskTier) Valid() bool { return t >= TierLow && t <= TierHigh }

func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid risk tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(b []byte) error {
	v, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseRiskTier accepts the English names and the database labels (BAIXO, MODERADO, ALTO).
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW", "BAIXO":
		return TierLow, nil
	case "MEDIUM", "MODERADO", "MEDIO", "MÉDIO":
		return TierMedium, nil
	case "HIGH", "ALTO":
		return TierHigh, nil
	}
	return 0, fmt.Errorf("unknown risk tier %q", s)
}

// RiskProfile is the investor profile of an account.
type RiskProfile int

const (
	ProfileConservative RiskProfile = iota
	ProfileModerate
	ProfileAggressive
)

func (p RiskProfile) String() string {
	switch p {
	case ProfileConservative:
		return "CONSERVATIVE"
	case ProfileModerate:
		return "MODERATE"
	case ProfileAggressive:
		return "AGGRESSIVE"
	default:
		return fmt.Sprintf("RiskProfile(%d)", int(p))
	}
}

func (p RiskProfile) Label() string {
	switch p {
	case ProfileConservative:
		return "Conservador"
	case ProfileModerate:
		return "Moderado"
	case ProfileAggressive:
		return "Arrojado"
	default:
		return p.String()
	}
}

func (p RiskProfile) Valid() bool { return p >= ProfileConservative && p <= ProfileAggressive }

func (p RiskProfile) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid risk profile %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *RiskProfile) UnmarshalText(b []byte) error {
	v, err := ParseRiskProfile(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseRiskProfile accepts the English names and the database labels (CONSERVADOR, MODERADO, ARROJADO).
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONSERVATIVE", "CONSERVADOR":
		return ProfileConservative, nil
	case "MODERATE", "MODERADO":
		return ProfileModerate, nil
	case "AGGRESSIVE", "ARROJADO":
		return ProfileAggressive, nil
	}
	return 0, fmt.Errorf("unknown risk profile %q", s)
}
