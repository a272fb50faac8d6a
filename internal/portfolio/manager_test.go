package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"FinUp/internal/collector"
	"FinUp/internal/model"
	"FinUp/internal/store"
	"FinUp/internal/strategy"
)

var evalTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	account  *model.Account
	holdings []model.Holding
	err      error
}

func (f *fakeProvider) Account(ctx context.Context, sess *model.Session) (*model.Account, error) {
	if f.account == nil || sess.CPF != f.account.CPF {
		return nil, store.ErrAccountNotFound
	}
	return f.account, nil
}

func (f *fakeProvider) Holdings(ctx context.Context, acct *model.Account) ([]model.Holding, error) {
	return f.holdings, f.err
}

func (f *fakeProvider) Close() error { return nil }

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func monthsAgo(n int) time.Time { return evalTime.AddDate(0, -n, 0) }

func newManager(p store.HoldingsProvider, prices map[string]float64, currency map[string]string) *Manager {
	c := collector.NewCollector(&collector.MockFetcher{Prices: prices, Currency: currency}, collector.Options{})
	m := NewManager(p, c, strategy.DefaultTolerance)
	m.Now = func() time.Time { return evalTime }
	return m
}

func TestValue_FundCompounds(t *testing.T) {
	h := model.Holding{ID: "FUND-1", Kind: model.KindFund, Principal: 10000, YieldRate: 0.01, AppliedAt: monthsAgo(12), Tier: model.TierLow}
	v := Value(h, nil, evalTime)
	if !approx(v.Value, 11268.25) {
		t.Errorf("expected ~11268.25, got %.2f", v.Value)
	}
	if !approx(v.ReturnPct, 12.68) {
		t.Errorf("expected ~12.68%% return, got %.2f", v.ReturnPct)
	}
	if v.Quote != nil || v.Stale || v.Invalid {
		t.Errorf("fund valuation should carry no quote or flags: %+v", v)
	}

	h.AppliedAt = evalTime
	if v := Value(h, nil, evalTime); v.Value != 10000 {
		t.Errorf("fund applied now should equal principal, got %.2f", v.Value)
	}
}

func TestValue_ZeroPurchasePrice(t *testing.T) {
	h := model.Holding{ID: "CRYPTO-1", Kind: model.KindCrypto, Name: "bitcoin", Principal: 500, AppliedAt: monthsAgo(1), Tier: model.TierHigh}
	v := Value(h, &model.Quote{Price: 350000, Currency: "BRL"}, evalTime)
	if v.Value != 500 || v.ReturnPct != 0 || !v.Invalid {
		t.Errorf("expected flat invalid valuation, got %+v", v)
	}
}

func TestValue_Market(t *testing.T) {
	tests := []struct {
		name       string
		h          model.Holding
		price      float64
		wantValue  float64
		wantReturn float64
	}{
		{
			"crypto gain",
			model.Holding{Kind: model.KindCrypto, Principal: 1000, PurchasePrice: 200000},
			300000, 1500, 50,
		},
		{
			"equity loss",
			model.Holding{Kind: model.KindEquity, Principal: 3000, Quantity: 100, PurchasePrice: 30},
			24, 2400, -20,
		},
	}
	for _, tt := range tests {
		v := Value(tt.h, &model.Quote{Price: tt.price}, evalTime)
		if !approx(v.Value, tt.wantValue) || !approx(v.ReturnPct, tt.wantReturn) {
			t.Errorf("%s: expected %.2f / %.2f%%, got %.2f / %.2f%%", tt.name, tt.wantValue, tt.wantReturn, v.Value, v.ReturnPct)
		}
		if v.Invested != tt.h.Principal {
			t.Errorf("%s: invested should be principal, got %.2f", tt.name, v.Invested)
		}
	}
}

func conservativeProvider() *fakeProvider {
	return &fakeProvider{
		account: &model.Account{ID: 7, CPF: "12345678900", Profile: model.ProfileConservative},
		holdings: []model.Holding{
			{ID: "FUND-1", Kind: model.KindFund, Name: "CDB", Principal: 6000, AppliedAt: monthsAgo(6), Tier: model.TierLow},
			{ID: "EQUITY-1", Kind: model.KindEquity, Name: "PETR4", Principal: 3000, Quantity: 100, PurchasePrice: 30, AppliedAt: monthsAgo(3), Tier: model.TierMedium},
			{ID: "CRYPTO-1", Kind: model.KindCrypto, Name: "bitcoin", Principal: 1000, PurchasePrice: 300000, AppliedAt: monthsAgo(2), Tier: model.TierHigh},
		},
	}
}

func TestEvaluate_Conservative(t *testing.T) {
	m := newManager(conservativeProvider(),
		map[string]float64{"PETR4.SA": 30, "BTC-USD": 60000, "USDBRL=X": 5},
		map[string]string{"BTC-USD": "USD"})

	report, err := m.Evaluate(context.Background(), &model.Session{CPF: "12345678900"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.Empty || report.Snapshot == nil || report.Plan == nil {
		t.Fatalf("expected a full report, got %+v", report)
	}
	if !approx(report.Snapshot.Total, 10000) {
		t.Errorf("expected total 10000, got %.2f", report.Snapshot.Total)
	}
	if n := report.Snapshot.StaleCount(); n != 0 {
		t.Errorf("expected no stale quotes, got %d", n)
	}

	recs := report.Plan.Recommendations
	if len(recs) != 1 {
		t.Fatalf("expected one recommendation, got %+v", recs)
	}
	r := recs[0]
	if r.Action != model.ActionTransfer || r.From == nil || *r.From != model.TierHigh || r.To != model.TierLow || !approx(r.Amount, 1000) {
		t.Errorf("expected transfer HIGH->LOW 1000, got %+v", r)
	}
	if len(report.Plan.Divest) != 1 || report.Plan.Divest[0] != model.TierHigh {
		t.Errorf("expected HIGH to be divested, got %v", report.Plan.Divest)
	}
	if !report.GeneratedAt.Equal(evalTime) {
		t.Errorf("unexpected generation time %v", report.GeneratedAt)
	}
}

func TestNewManager_Tolerance(t *testing.T) {
	p := &fakeProvider{
		account: &model.Account{ID: 3, CPF: "111", Profile: model.ProfileConservative},
		holdings: []model.Holding{
			{ID: "FUND-1", Kind: model.KindFund, Principal: 6800, AppliedAt: monthsAgo(1), Tier: model.TierLow},
			{ID: "FUND-2", Kind: model.KindFund, Principal: 3000, AppliedAt: monthsAgo(1), Tier: model.TierMedium},
			{ID: "FUND-3", Kind: model.KindFund, Principal: 200, AppliedAt: monthsAgo(1), Tier: model.TierHigh},
		},
	}
	c := collector.NewCollector(&collector.MockFetcher{}, collector.Options{})

	tests := []struct {
		tolerance float64
		want      float64
		recs      int
	}{
		{0, 0, 1},
		{-1, strategy.DefaultTolerance, 0},
		{strategy.DefaultTolerance, strategy.DefaultTolerance, 0},
	}
	for _, tt := range tests {
		m := NewManager(p, c, tt.tolerance)
		m.Now = func() time.Time { return evalTime }
		if m.Tolerance() != tt.want {
			t.Errorf("NewManager(%v).Tolerance() = %v, want %v", tt.tolerance, m.Tolerance(), tt.want)
		}
		report, err := m.Evaluate(context.Background(), &model.Session{CPF: "111"})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got := len(report.Plan.Recommendations); got != tt.recs {
			t.Errorf("tolerance %v: expected %d recommendations, got %+v", tt.tolerance, tt.recs, report.Plan.Recommendations)
		}
	}
}

func TestEvaluate_QuoteFailureIsStale(t *testing.T) {
	m := newManager(conservativeProvider(), map[string]float64{"PETR4.SA": 30}, nil)

	report, err := m.Evaluate(context.Background(), &model.Session{CPF: "12345678900"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var btc *model.Valuation
	for i := range report.Snapshot.Valuations {
		if report.Snapshot.Valuations[i].Holding.ID == "CRYPTO-1" {
			btc = &report.Snapshot.Valuations[i]
		}
	}
	if btc == nil {
		t.Fatal("crypto valuation missing")
	}
	if !btc.Stale || !approx(btc.Value, 1000) || btc.ReturnPct != 0 {
		t.Errorf("expected stale valuation at principal, got %+v", btc)
	}
	if report.Snapshot.StaleCount() != 1 {
		t.Errorf("expected one stale valuation, got %d", report.Snapshot.StaleCount())
	}
}

func TestEvaluate_SkipsClosedHoldings(t *testing.T) {
	closed := monthsAgo(1)
	p := &fakeProvider{
		account: &model.Account{ID: 1, CPF: "1", Profile: model.ProfileModerate},
		holdings: []model.Holding{
			{ID: "FUND-1", Kind: model.KindFund, Principal: 4000, AppliedAt: monthsAgo(6), Tier: model.TierLow},
			{ID: "FUND-2", Kind: model.KindFund, Principal: 5000, AppliedAt: monthsAgo(6), Tier: model.TierMedium},
			{ID: "FUND-3", Kind: model.KindFund, Principal: 1000, AppliedAt: monthsAgo(6), Tier: model.TierHigh},
			{ID: "FUND-4", Kind: model.KindFund, Principal: 9000, AppliedAt: monthsAgo(9), ClosedAt: &closed, Tier: model.TierHigh},
		},
	}
	report, err := newManager(p, nil, nil).Evaluate(context.Background(), &model.Session{CPF: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Closed != 1 {
		t.Errorf("expected one closed holding, got %d", report.Closed)
	}
	if !approx(report.Snapshot.Total, 10000) {
		t.Errorf("closed holding leaked into total: %.2f", report.Snapshot.Total)
	}
	if !report.Plan.Balanced() || len(report.Plan.Recommendations) != 0 {
		t.Errorf("expected balanced moderate portfolio, got %+v", report.Plan)
	}
}

func TestEvaluate_EmptyPortfolio(t *testing.T) {
	p := &fakeProvider{account: &model.Account{ID: 1, CPF: "1", Profile: model.ProfileAggressive}}
	report, err := newManager(p, nil, nil).Evaluate(context.Background(), &model.Session{CPF: "1"})
	if err != nil {
		t.Fatalf("empty portfolio must not fail: %v", err)
	}
	if !report.Empty || report.Snapshot != nil || report.Plan != nil {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	p := conservativeProvider()
	m := newManager(p, nil, nil)

	if _, err := m.Evaluate(context.Background(), &model.Session{CPF: "999"}); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := m.Evaluate(context.Background(), nil); err == nil {
		t.Error("expected error for nil session")
	}

	boom := errors.New("connection reset")
	p.err = boom
	if _, err := m.Evaluate(context.Background(), &model.Session{CPF: "12345678900"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}
