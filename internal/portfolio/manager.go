package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinUp/internal/calculator"
	"FinUp/internal/model"
	"FinUp/internal/store"
	"FinUp/internal/strategy"

	"go.uber.org/zap"
)

// Quoter resolves the current home-currency price of a market holding. It never fails.
type Quoter interface {
	Quote(ctx context.Context, h model.Holding) model.Quote
}

// Report is the outcome of one evaluation pass.
type Report struct {
	Account     *model.Account  `json:"account"`
	Snapshot    *model.Snapshot `json:"snapshot,omitempty"`
	Plan        *model.Plan     `json:"plan,omitempty"`
	Empty       bool            `json:"empty"`
	Closed      int             `json:"closed"` // holdings skipped as no longer active
	GeneratedAt time.Time       `json:"generated_at"`
}

// Manager runs evaluations against a holdings provider and a quote source.
type Manager struct {
	holdings  store.HoldingsProvider
	quotes    Quoter
	tolerance float64

	// Now is the evaluation clock.
	Now func() time.Time
}

// NewManager creates a Manager. A negative tolerance uses strategy.DefaultTolerance; zero requires exact targets.
func NewManager(holdings store.HoldingsProvider, quotes Quoter, tolerance float64) *Manager {
	if tolerance < 0 {
		tolerance = strategy.DefaultTolerance
	}
	return &Manager{holdings: holdings, quotes: quotes, tolerance: tolerance, Now: time.Now}
}

// Tolerance returns the rebalancing tolerance in percentage points.
func (m *Manager) Tolerance() float64 { return m.tolerance }

// Evaluate values every active holding of the session's account and builds its rebalancing plan.
func (m *Manager) Evaluate(ctx context.Context, sess *model.Session) (*Report, error) {
	if sess == nil || sess.CPF == "" {
		return nil, fmt.Errorf("evaluate: session without cpf")
	}
	acct, err := m.holdings.Account(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	holdings, err := m.holdings.Holdings(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("evaluate account %d: %w", acct.ID, err)
	}
	return m.EvaluateHoldings(ctx, acct, holdings)
}

// EvaluateHoldings runs the valuation and rebalancing steps on already loaded holdings.
func (m *Manager) EvaluateHoldings(ctx context.Context, acct *model.Account, holdings []model.Holding) (*Report, error) {
	now := m.Now()
	report := &Report{Account: acct, GeneratedAt: now}

	vals := make([]model.Valuation, 0, len(holdings))
	for _, h := range holdings {
		if !h.Active(now) {
			report.Closed++
			continue
		}
		var q *model.Quote
		if h.Kind != model.KindFund {
			quote := m.quotes.Quote(ctx, h)
			q = &quote
		}
		vals = append(vals, Value(h, q, now))
	}

	snap, err := strategy.Aggregate(vals)
	if errors.Is(err, model.ErrEmptyPortfolio) {
		report.Empty = true
		zap.L().Info("portfolio has no active value", zap.Int64("account", acct.ID), zap.Int("closed", report.Closed))
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate account %d: %w", acct.ID, err)
	}
	report.Snapshot = snap

	plan, err := strategy.Rebalance(snap, acct.Profile, m.tolerance)
	if err != nil {
		return nil, fmt.Errorf("rebalance account %d: %w", acct.ID, err)
	}
	report.Plan = plan

	zap.L().Info("portfolio evaluated",
		zap.Int64("account", acct.ID),
		zap.String("profile", acct.Profile.String()),
		zap.Float64("total", snap.Total),
		zap.Int("holdings", len(vals)),
		zap.Int("stale", snap.StaleCount()),
		zap.Int("recommendations", len(plan.Recommendations)))
	return report, nil
}

// Value computes the present value of one holding. Funds compound on the calendar; crypto and
// equity holdings are marked to q. It never fails: data problems are flagged on the valuation.
func Value(h model.Holding, q *model.Quote, now time.Time) model.Valuation {
	v := model.Valuation{Holding: h, Invested: h.Principal}

	if h.Kind == model.KindFund {
		v.Value = calculator.FundValueAt(h.Principal, h.YieldRate, h.AppliedAt, now)
		if h.Principal > 0 {
			v.ReturnPct = (v.Value/h.Principal - 1) * 100
		}
		return v
	}

	if q == nil {
		q = &model.Quote{Price: h.PurchasePrice, Currency: "BRL", FetchedAt: now, Stale: true}
	}
	v.Quote = q
	v.Stale = q.Stale

	value, err := calculator.MarketValue(h, q.Price)
	if err != nil {
		zap.L().Warn("holding has no purchase price, valuing at principal",
			zap.String("holding", h.ID), zap.String("name", h.Name), zap.Float64("principal", h.Principal))
		v.Value = h.Principal
		v.Invalid = true
		return v
	}
	v.Value = value
	v.ReturnPct, _ = calculator.ReturnPct(h.PurchasePrice, q.Price)
	return v
}
