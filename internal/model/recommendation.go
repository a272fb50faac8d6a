package model

// Action is what a recommendation asks the investor to do.
type Action string

const (
	ActionTransfer Action = "TRANSFER"
	ActionTopUp    Action = "TOP_UP"
)

// Recommendation is one step of a rebalancing plan. From is nil for top-ups.
type Recommendation struct {
	Action Action    `json:"action"`
	From   *RiskTier `json:"from,omitempty"`
	To     RiskTier  `json:"to"`
	Amount float64   `json:"amount"`
}

// TierDelta compares current and target allocation of a tier.
type TierDelta struct {
	Tier         RiskTier `json:"tier"`
	CurrentPct   float64  `json:"current_pct"`
	TargetPct    float64  `json:"target_pct"`
	Delta        float64  `json:"delta"`
	CurrentValue float64  `json:"current_value"`
	TargetValue  float64  `json:"target_value"`
	OutOfBalance bool     `json:"out_of_balance"`
}

// Plan is the rebalancing outcome for one snapshot.
type Plan struct {
	Profile         RiskProfile      `json:"profile"`
	Tolerance       float64          `json:"tolerance"`
	Deltas          [3]TierDelta     `json:"deltas"`
	Recommendations []Recommendation `json:"recommendations"`
	Divest          []RiskTier       `json:"divest,omitempty"`
}

// Balanced reports whether every tier is within tolerance.
func (p *Plan) Balanced() bool {
	for _, d := range p.Deltas {
		if d.OutOfBalance {
			return false
		}
	}
	return true
}
