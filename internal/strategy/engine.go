package strategy

import (
	"math"

	"FinUp/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// minAmount drops recommendations below one cent.
const minAmount = 0.01

// Aggregate groups valuations by risk tier. It returns model.ErrEmptyPortfolio when the total is zero.
func Aggregate(vals []model.Valuation) (*model.Snapshot, error) {
	snap := &model.Snapshot{Valuations: vals}
	for _, t := range model.Tiers {
		snap.Tiers[t].Tier = t
	}

	for _, v := range vals {
		t := v.Holding.Tier
		if !t.Valid() {
			zap.L().Warn("valuation with unknown risk tier skipped", zap.String("holding", v.Holding.ID))
			continue
		}
		snap.Tiers[t].Value += v.Value
		snap.Tiers[t].Invested += v.Invested
		snap.Total += v.Value
		snap.Invested += v.Invested
	}

	if snap.Total <= 0 {
		return nil, model.ErrEmptyPortfolio
	}
	for _, t := range model.Tiers {
		snap.Tiers[t].Percent = snap.Tiers[t].Value / snap.Total * 100
	}
	return snap, nil
}

// Rebalance compares a snapshot against the target of profile and builds a transfer plan.
//
// Target values are taken over the larger of the current total and the committed capital, so a portfolio
// trading below its principal produces top-ups for the missing amount. Transfers go to adjacent tiers
// before reaching across two tiers; within the same distance tiers are visited Low, Medium, High.
func Rebalance(snap *model.Snapshot, profile model.RiskProfile, tolerance float64) (*model.Plan, error) {
	target, err := TargetFor(profile)
	if err != nil {
		return nil, err
	}
	base := math.Max(snap.Total, snap.Invested)

	plan := &model.Plan{Profile: profile, Tolerance: tolerance}
	for _, t := range model.Tiers {
		cur := snap.Tier(t)
		delta := cur.Percent - target.Pct(t)
		plan.Deltas[t] = model.TierDelta{
			Tier:         t,
			CurrentPct:   cur.Percent,
			TargetPct:    target.Pct(t),
			Delta:        delta,
			CurrentValue: cur.Value,
			TargetValue:  target.Pct(t) / 100 * base,
			OutOfBalance: math.Abs(delta) > tolerance,
		}
		if target.Pct(t) == 0 && cur.Value > 0 {
			plan.Divest = append(plan.Divest, t)
		}
	}
	if plan.Balanced() {
		return plan, nil
	}

	var excess, shortfall [3]float64
	for _, d := range plan.Deltas {
		diff := d.CurrentValue - d.TargetValue
		if diff > 0 {
			excess[d.Tier] = diff
		} else {
			shortfall[d.Tier] = -diff
		}
	}

	for dist := 1; dist < len(model.Tiers); dist++ {
		for _, from := range model.Tiers {
			for _, to := range model.Tiers {
				if abs(int(from)-int(to)) != dist || excess[from] <= 0 || shortfall[to] <= 0 {
					continue
				}
				amount := math.Min(excess[from], shortfall[to])
				excess[from] -= amount
				shortfall[to] -= amount
				src := from
				addRecommendation(plan, model.ActionTransfer, &src, to, amount)
			}
		}
	}

	for _, to := range model.Tiers {
		if shortfall[to] > 0 {
			addRecommendation(plan, model.ActionTopUp, nil, to, shortfall[to])
		}
	}
	return plan, nil
}

func addRecommendation(plan *model.Plan, action model.Action, from *model.RiskTier, to model.RiskTier, amount float64) {
	amount = RoundCents(amount)
	if amount < minAmount {
		return
	}
	plan.Recommendations = append(plan.Recommendations, model.Recommendation{
		Action: action,
		From:   from,
		To:     to,
		Amount: amount,
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// RoundCents rounds a currency amount half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
