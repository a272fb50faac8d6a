package model

import "errors"

// ErrEmptyPortfolio signals that there is nothing to aggregate.
var ErrEmptyPortfolio = errors.New("empty portfolio")

// TierAllocation is the aggregate of one risk tier.
type TierAllocation struct {
	Tier     RiskTier `json:"tier"`
	Value    float64  `json:"value"`
	Invested float64  `json:"invested"`
	Percent  float64  `json:"percent"`
}

// Snapshot is the allocation of a portfolio at evaluation time.
type Snapshot struct {
	Tiers      [3]TierAllocation `json:"tiers"`
	Total      float64           `json:"total"`
	Invested   float64           `json:"invested"`
	Valuations []Valuation       `json:"valuations"`
}

// Tier returns the allocation of t.
func (s *Snapshot) Tier(t RiskTier) TierAllocation {
	return s.Tiers[t]
}

// StaleCount returns how many valuations used a default price.
func (s *Snapshot) StaleCount() int {
	n := 0
	for _, v := range s.Valuations {
		if v.Stale {
			n++
		}
	}
	return n
}
