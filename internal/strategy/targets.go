package strategy

import (
	"fmt"

	"FinUp/internal/model"
)

// DefaultTolerance is how many percentage points a tier may drift before the portfolio needs rebalancing.
const DefaultTolerance = 5.0

// Target is the percentage split over Low, Medium and High.
type Target [3]float64

// Pct returns the target percentage of tier t.
func (tg Target) Pct(t model.RiskTier) float64 { return tg[t] }

// Targets maps each risk profile to its target allocation. Every row sums to 100.
var Targets = map[model.RiskProfile]Target{
	model.ProfileConservative: {70, 30, 0},
	model.ProfileModerate:     {40, 50, 10},
	model.ProfileAggressive:   {20, 30, 50},
}

// TargetFor looks up the target allocation of a profile.
func TargetFor(p model.RiskProfile) (Target, error) {
	tg, ok := Targets[p]
	if !ok {
		return Target{}, fmt.Errorf("no target allocation for profile %s", p)
	}
	return tg, nil
}
